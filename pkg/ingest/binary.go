package ingest

import (
	"encoding/binary"
	"errors"
	"math"
)

// Compact binary telemetry frame layout (all little-endian):
// header: f64 timestamp, u8 car count
// per car (14 byte stride): u16 carId, f32 lapDistPct, f32 speed,
// u16 lap, u8 position, 1 reserved byte (zero on write, ignored on read)
const (
	binaryHeaderLen = 9
	binaryCarStride = 14
)

var ErrShortFrame = errors.New("binary frame shorter than header")

type BinaryCar struct {
	CarID      uint16
	LapDistPct float32
	Speed      float32
	Lap        uint16
	Position   uint8
}

type BinaryFrame struct {
	Timestamp float64
	Cars      []BinaryCar
}

// DecodeBinaryFrame decodes a compact frame. Records are bounds-checked
// against the payload length: a frame truncated mid-record yields the
// records that fit, never an error. Only a payload too short for the
// header is rejected.
func DecodeBinaryFrame(payload []byte) (*BinaryFrame, error) {
	if len(payload) < binaryHeaderLen {
		return nil, ErrShortFrame
	}
	ret := &BinaryFrame{
		Timestamp: math.Float64frombits(binary.LittleEndian.Uint64(payload[0:8])),
	}
	count := int(payload[8])
	ret.Cars = make([]BinaryCar, 0, count)
	offset := binaryHeaderLen
	for i := 0; i < count; i++ {
		if offset+binaryCarStride > len(payload) {
			break
		}
		rec := payload[offset : offset+binaryCarStride]
		ret.Cars = append(ret.Cars, BinaryCar{
			CarID:      binary.LittleEndian.Uint16(rec[0:2]),
			LapDistPct: math.Float32frombits(binary.LittleEndian.Uint32(rec[2:6])),
			Speed:      math.Float32frombits(binary.LittleEndian.Uint32(rec[6:10])),
			Lap:        binary.LittleEndian.Uint16(rec[10:12]),
			Position:   rec[12],
		})
		offset += binaryCarStride
	}
	return ret, nil
}

// EncodeBinaryFrame produces the wire form of a frame. The reserved
// byte of each record is zero-filled.
func EncodeBinaryFrame(frame *BinaryFrame) []byte {
	ret := make([]byte, binaryHeaderLen+len(frame.Cars)*binaryCarStride)
	binary.LittleEndian.PutUint64(ret[0:8], math.Float64bits(frame.Timestamp))
	ret[8] = uint8(len(frame.Cars))
	offset := binaryHeaderLen
	for i := range frame.Cars {
		rec := ret[offset : offset+binaryCarStride]
		binary.LittleEndian.PutUint16(rec[0:2], frame.Cars[i].CarID)
		binary.LittleEndian.PutUint32(rec[2:6], math.Float32bits(frame.Cars[i].LapDistPct))
		binary.LittleEndian.PutUint32(rec[6:10], math.Float32bits(frame.Cars[i].Speed))
		binary.LittleEndian.PutUint16(rec[10:12], frame.Cars[i].Lap)
		rec[12] = frame.Cars[i].Position
		offset += binaryCarStride
	}
	return ret
}
