package encoding

import (
	"fmt"
	"strconv"

	"github.com/synheart/synheart-physio/internal/models"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtobufEncoder encodes events as a google.protobuf.Struct message.
type ProtobufEncoder struct{}

func NewProtobufEncoder() *ProtobufEncoder {
	return &ProtobufEncoder{}
}

func (e *ProtobufEncoder) Encode(event models.Event) ([]byte, error) {
	pb, err := eventToProto(event)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pb)
}

func (e *ProtobufEncoder) ContentType() string {
	return "application/x-protobuf"
}

// DecodeProtobuf parses a message produced by ProtobufEncoder.
func DecodeProtobuf(data []byte) (models.Event, error) {
	var pb structpb.Struct
	if err := proto.Unmarshal(data, &pb); err != nil {
		return models.Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return protoToEvent(&pb)
}

func eventToProto(e models.Event) (*structpb.Struct, error) {
	samples := make([]any, len(e.Signal.Samples))
	for i, v := range e.Signal.Samples {
		samples[i] = v
	}

	// Seeds are full int64 values; a protobuf number is a double.
	return structpb.NewStruct(map[string]any{
		"schema_version": e.SchemaVersion,
		"event_id":       e.EventID,
		"ts":             e.Timestamp,
		"session": map[string]any{
			"run_id": e.Session.RunID,
			"preset": e.Session.Preset,
			"seed":   strconv.FormatInt(e.Session.Seed, 10),
		},
		"signal": map[string]any{
			"modality":      e.Signal.Modality,
			"unit":          e.Signal.Unit,
			"sampling_rate": e.Signal.SamplingRate,
			"offset":        e.Signal.Offset,
			"samples":       samples,
		},
		"meta": map[string]any{
			"sequence": strconv.FormatInt(e.Meta.Sequence, 10),
			"final":    e.Meta.Final,
		},
	})
}

func protoToEvent(pb *structpb.Struct) (models.Event, error) {
	f := pb.GetFields()
	session := f["session"].GetStructValue().GetFields()
	signal := f["signal"].GetStructValue().GetFields()
	meta := f["meta"].GetStructValue().GetFields()

	seed, err := parseInt(session["seed"])
	if err != nil {
		return models.Event{}, fmt.Errorf("session.seed: %w", err)
	}
	seq, err := parseInt(meta["sequence"])
	if err != nil {
		return models.Event{}, fmt.Errorf("meta.sequence: %w", err)
	}

	values := signal["samples"].GetListValue().GetValues()
	samples := make([]float64, len(values))
	for i, v := range values {
		samples[i] = v.GetNumberValue()
	}

	return models.Event{
		SchemaVersion: f["schema_version"].GetStringValue(),
		EventID:       f["event_id"].GetStringValue(),
		Timestamp:     f["ts"].GetStringValue(),
		Session: models.Session{
			RunID:  session["run_id"].GetStringValue(),
			Preset: session["preset"].GetStringValue(),
			Seed:   seed,
		},
		Signal: models.Signal{
			Modality:     signal["modality"].GetStringValue(),
			Unit:         signal["unit"].GetStringValue(),
			SamplingRate: int(signal["sampling_rate"].GetNumberValue()),
			Offset:       int(signal["offset"].GetNumberValue()),
			Samples:      samples,
		},
		Meta: models.Meta{
			Sequence: seq,
			Final:    meta["final"].GetBoolValue(),
		},
	}, nil
}

func parseInt(v *structpb.Value) (int64, error) {
	if v == nil {
		return 0, nil
	}
	return strconv.ParseInt(v.GetStringValue(), 10, 64)
}
