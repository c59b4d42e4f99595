package modbus

import (
	"encoding/binary"
	"fmt"
)

// MBAP header (7 bytes) + function code + data
type Frame struct {
	TransactionID uint16 // request/response correlation
	ProtocolID    uint16 // always 0x0000 for Modbus
	Length        uint16 // number of following bytes
	UnitID        uint8
	FunctionCode  uint8
	Data          []byte
}

const (
	FuncCodeWriteSingleCoil    = 0x05
	FuncCodeWriteMultipleCoils = 0x0F

	// maxCoilsPerWrite is the protocol limit for one 0x0F request.
	maxCoilsPerWrite = 1968

	// exceptionFlag is set on the function code of an error response.
	exceptionFlag = 0x80

	coilOn  = 0xFF00
	coilOff = 0x0000
)

// Encode builds the complete TCP frame.
func (f *Frame) Encode() []byte {
	f.Length = uint16(len(f.Data) + 2) // unit id + function code

	frame := make([]byte, 7+1+len(f.Data))

	binary.BigEndian.PutUint16(frame[0:2], f.TransactionID)
	binary.BigEndian.PutUint16(frame[2:4], f.ProtocolID)
	binary.BigEndian.PutUint16(frame[4:6], f.Length)
	frame[6] = f.UnitID

	frame[7] = f.FunctionCode
	copy(frame[8:], f.Data)

	return frame
}

// DecodeFrame parses a received frame.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}

	frame := &Frame{
		TransactionID: binary.BigEndian.Uint16(data[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(data[2:4]),
		Length:        binary.BigEndian.Uint16(data[4:6]),
		UnitID:        data[6],
		FunctionCode:  data[7],
	}

	if frame.ProtocolID != 0x0000 {
		return nil, fmt.Errorf("invalid protocol ID: 0x%04X", frame.ProtocolID)
	}

	if len(data) > 8 {
		frame.Data = data[8:]
	}

	return frame, nil
}

// WriteSingleCoilRequest builds a function code 0x05 request.
func WriteSingleCoilRequest(transactionID uint16, unitID uint8, addr uint16, on bool) *Frame {
	value := uint16(coilOff)
	if on {
		value = coilOn
	}

	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], value)

	return &Frame{
		TransactionID: transactionID,
		ProtocolID:    0x0000,
		UnitID:        unitID,
		FunctionCode:  FuncCodeWriteSingleCoil,
		Data:          data,
	}
}

// WriteMultipleCoilsRequest builds a function code 0x0F request for a run of
// coils starting at start. Values are packed LSB first.
func WriteMultipleCoilsRequest(transactionID uint16, unitID uint8, start uint16, values []bool) *Frame {
	byteCount := (len(values) + 7) / 8

	data := make([]byte, 5+byteCount)
	binary.BigEndian.PutUint16(data[0:2], start)
	binary.BigEndian.PutUint16(data[2:4], uint16(len(values)))
	data[4] = byte(byteCount)
	for i, on := range values {
		if on {
			data[5+i/8] |= 1 << (i % 8)
		}
	}

	return &Frame{
		TransactionID: transactionID,
		ProtocolID:    0x0000,
		UnitID:        unitID,
		FunctionCode:  FuncCodeWriteMultipleCoils,
		Data:          data,
	}
}

// CheckWriteResponse verifies the echo of a write. Both 0x05 and 0x0F echo the
// first four data bytes of the request.
func (f *Frame) CheckWriteResponse(request *Frame) error {
	if f.FunctionCode == request.FunctionCode|exceptionFlag {
		code := byte(0)
		if len(f.Data) > 0 {
			code = f.Data[0]
		}
		return fmt.Errorf("modbus exception 0x%02X", code)
	}
	if f.FunctionCode != request.FunctionCode {
		return fmt.Errorf("function code mismatch: expected 0x%02X, got 0x%02X",
			request.FunctionCode, f.FunctionCode)
	}
	if len(f.Data) < 4 || string(f.Data[:4]) != string(request.Data[:4]) {
		return fmt.Errorf("write echo mismatch")
	}
	return nil
}
