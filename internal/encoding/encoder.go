package encoding

import (
	"encoding/json"
	"fmt"

	"github.com/synheart/synheart-physio/internal/models"
)

// Format represents the encoding format
type Format string

const (
	FormatJSON     Format = "json"
	FormatProtobuf Format = "protobuf"
	FormatBinary   Format = "binary"
)

// Encoder encodes events to bytes
type Encoder interface {
	Encode(event models.Event) ([]byte, error)
	ContentType() string
}

// JSONEncoder encodes events as JSON
type JSONEncoder struct{}

func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

func (e *JSONEncoder) Encode(event models.Event) ([]byte, error) {
	return json.Marshal(event)
}

func (e *JSONEncoder) ContentType() string {
	return "application/json"
}

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatProtobuf, FormatBinary:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown encoding %q (expected: json|protobuf|binary)", s)
	}
}

// NewEncoder creates an encoder for the given format
func NewEncoder(format Format) Encoder {
	switch format {
	case FormatProtobuf:
		return NewProtobufEncoder()
	case FormatBinary:
		return NewBinaryEncoder()
	default:
		return NewJSONEncoder()
	}
}
