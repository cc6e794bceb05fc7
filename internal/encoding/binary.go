package encoding

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/synheart/synheart-physio/internal/models"
)

// BinaryEncoder packs only the samples of an event as little-endian
// float32 values. Metadata travels out of band (subject or channel name).
type BinaryEncoder struct{}

func NewBinaryEncoder() *BinaryEncoder {
	return &BinaryEncoder{}
}

func (e *BinaryEncoder) Encode(event models.Event) ([]byte, error) {
	return PackFloat32(event.Signal.Samples), nil
}

func (e *BinaryEncoder) ContentType() string {
	return "application/octet-stream"
}

// PackFloat32 converts samples to little-endian float32 bytes.
func PackFloat32(samples []float64) []byte {
	out := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}
	return out
}

// UnpackFloat32 is the inverse of PackFloat32.
func UnpackFloat32(data []byte) ([]float64, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("binary payload length %d is not a multiple of 4", len(data))
	}
	out := make([]float64, len(data)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return out, nil
}
