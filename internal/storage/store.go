package storage

import (
	"fmt"
	"sync"

	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"go.uber.org/zap"
)

// DefaultResetThreshold is the analog level above which a factory reset is requested.
const DefaultResetThreshold = 500

// ResetSensor samples the factory reset input once.
type ResetSensor interface {
	Sample() (int, error)
}

// Store owns the in-memory image of the configuration region.
type Store struct {
	medium Medium
	logger *zap.Logger

	mu    sync.Mutex
	image []byte

	sensor    ResetSensor
	threshold int
}

func NewStore(medium Medium, logger *zap.Logger) (*Store, error) {
	image, err := medium.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration region: %w", err)
	}
	if len(image) < RecordSize {
		return nil, fmt.Errorf("configuration region too small: %d bytes", len(image))
	}

	return &Store{
		medium:    medium,
		logger:    logger,
		image:     image,
		threshold: DefaultResetThreshold,
	}, nil
}

// SetResetSensor wires the factory reset input and its trigger threshold.
func (s *Store) SetResetSensor(sensor ResetSensor, threshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensor = sensor
	s.threshold = threshold
}

// Load decodes the record. It reports false when the region holds no record.
func (s *Store) Load() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := Decode(s.image)
	if !ok {
		s.logger.Info("Configuration record not found")
		return Record{}, false
	}
	return rec, true
}

// Save zeroes the whole region, writes every field at its offset and commits.
// A rejected commit leaves the previous image in place and wraps types.ErrStoreWrite.
func (s *Store) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]byte, len(s.image))
	rec.encodeInto(next)

	if err := s.medium.Commit(next); err != nil {
		s.logger.Error("Configuration commit rejected", zap.Error(err))
		return fmt.Errorf("%w: %v", types.ErrStoreWrite, err)
	}
	s.image = next

	s.logger.Info("Configuration saved",
		zap.String("network_name", fit(rec.NetworkName, sizeNetworkName)),
		zap.Bool("use_pixel_strip", rec.UsePixelStrip),
		zap.Bool("invert_discrete_outputs", rec.InvertDiscreteOutputs))
	return nil
}

// Wipe zeroes the region and commits. Wiping an empty region is harmless.
func (s *Store) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]byte, len(s.image))
	if err := s.medium.Commit(next); err != nil {
		s.logger.Error("Configuration wipe rejected", zap.Error(err))
		return fmt.Errorf("%w: %v", types.ErrStoreWrite, err)
	}
	s.image = next

	s.logger.Info("Configuration wiped")
	return nil
}

// CheckFactoryResetRequest samples the reset sensor once. Without a sensor,
// or when sampling fails, no reset is requested.
func (s *Store) CheckFactoryResetRequest() bool {
	s.mu.Lock()
	sensor, threshold := s.sensor, s.threshold
	s.mu.Unlock()

	if sensor == nil {
		return false
	}

	level, err := sensor.Sample()
	if err != nil {
		s.logger.Warn("Factory reset input unreadable", zap.Error(err))
		return false
	}

	requested := level > threshold
	if requested {
		s.logger.Warn("Factory reset requested",
			zap.Int("level", level),
			zap.Int("threshold", threshold))
	}
	return requested
}
