package storage

import (
	"bytes"

	"github.com/KevinKickass/OpenTallyCore/internal/types"
)

// Persisted layout. Offsets are fixed; strings are zero padded and silently
// truncated to their width. Bytes 126..135 are reserved and always zero.
const (
	offsetNetworkName   = 0
	sizeNetworkName     = 32
	offsetNetworkSecret = 32
	sizeNetworkSecret   = 64
	offsetCameraLabels  = 96
	sizeCameraLabel     = 10
	offsetFlags         = 136

	// RecordSize is the number of bytes the record occupies in the region.
	RecordSize = 137

	flagPixelStrip     = 1 << 0
	flagInvertDiscrete = 1 << 1
)

// Record is the persisted identity of the device.
type Record struct {
	NetworkName           string                     `yaml:"network_name" json:"network_name"`
	NetworkSecret         string                     `yaml:"network_secret" json:"-"`
	CameraLabels          [types.ChannelCount]string `yaml:"camera_labels" json:"camera_labels"`
	UsePixelStrip         bool                       `yaml:"use_pixel_strip" json:"use_pixel_strip"`
	InvertDiscreteOutputs bool                       `yaml:"invert_discrete_outputs" json:"invert_discrete_outputs"`
}

// Truncated returns the record as it will read back after a save.
func (r Record) Truncated() Record {
	out := r
	out.NetworkName = fit(r.NetworkName, sizeNetworkName)
	out.NetworkSecret = fit(r.NetworkSecret, sizeNetworkSecret)
	for i, label := range r.CameraLabels {
		out.CameraLabels[i] = fit(label, sizeCameraLabel)
	}
	return out
}

// encodeInto writes the record into region, which must be zeroed and at least RecordSize long.
func (r Record) encodeInto(region []byte) {
	copy(region[offsetNetworkName:offsetNetworkName+sizeNetworkName], r.NetworkName)
	copy(region[offsetNetworkSecret:offsetNetworkSecret+sizeNetworkSecret], r.NetworkSecret)
	for i, label := range r.CameraLabels {
		start := offsetCameraLabels + i*sizeCameraLabel
		copy(region[start:start+sizeCameraLabel], label)
	}

	var flags byte
	if r.UsePixelStrip {
		flags |= flagPixelStrip
	}
	if r.InvertDiscreteOutputs {
		flags |= flagInvertDiscrete
	}
	region[offsetFlags] = flags
}

// Encode returns the fixed-layout encoding of the record.
func (r Record) Encode() []byte {
	region := make([]byte, RecordSize)
	r.encodeInto(region)
	return region
}

// Present reports whether the region holds a record (sentinel byte non-zero).
func Present(region []byte) bool {
	return len(region) > 0 && region[offsetNetworkName] != 0
}

// Decode reads a record from region. The second result is false when the
// sentinel byte is zero; decoding is otherwise total.
func Decode(region []byte) (Record, bool) {
	if !Present(region) {
		return Record{}, false
	}
	if len(region) < RecordSize {
		padded := make([]byte, RecordSize)
		copy(padded, region)
		region = padded
	}

	var r Record
	r.NetworkName = readString(region, offsetNetworkName, sizeNetworkName)
	r.NetworkSecret = readString(region, offsetNetworkSecret, sizeNetworkSecret)
	for i := range r.CameraLabels {
		r.CameraLabels[i] = readString(region, offsetCameraLabels+i*sizeCameraLabel, sizeCameraLabel)
	}
	flags := region[offsetFlags]
	r.UsePixelStrip = flags&flagPixelStrip != 0
	r.InvertDiscreteOutputs = flags&flagInvertDiscrete != 0
	return r, true
}

// readString stops at the first zero byte of the field.
func readString(region []byte, start, size int) string {
	field := region[start : start+size]
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}

// fit mirrors what a save followed by a load does to a string.
func fit(s string, size int) string {
	if len(s) > size {
		s = s[:size]
	}
	if i := bytes.IndexByte([]byte(s), 0); i >= 0 {
		s = s[:i]
	}
	return s
}
