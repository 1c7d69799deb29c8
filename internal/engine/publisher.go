package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/derived"
	"github.com/nerrad567/rotex-can-core/internal/entity"
)

// Update is one committed entity value as seen by the outside world.
type Update struct {
	ID    string
	Name  string
	Kind  entity.Kind
	Value entity.Value

	// Text is the display form: translated for enumerated kinds and, for
	// the error code, suffixed with confirmed faults.
	Text string
	Unit string

	// Faults lists the confirmed faults; only set on the error code.
	Faults []derived.Fault

	Timestamp time.Time
}

type updateJSON struct {
	ID        string   `json:"entity_id"`
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Value     any      `json:"value"`
	Text      string   `json:"text"`
	Unit      string   `json:"unit,omitempty"`
	Faults    []string `json:"faults,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// MarshalJSON encodes the update with the value as a plain JSON scalar.
func (u Update) MarshalJSON() ([]byte, error) {
	out := updateJSON{
		ID:    u.ID,
		Name:  u.Name,
		Kind:  string(u.Kind),
		Value: u.Value.Any(),
		Text:  u.Text,
		Unit:  u.Unit,
	}
	for _, f := range u.Faults {
		out.Faults = append(out.Faults, string(f))
	}
	if !u.Timestamp.IsZero() {
		out.Timestamp = u.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// FaultEvent reports the first confirmation of a plant fault.
type FaultEvent struct {
	Fault     derived.Fault `json:"fault"`
	ErrorCode string        `json:"error_code"`
	Timestamp time.Time     `json:"timestamp"`
}

// Publisher receives committed values and fault confirmations. Methods are
// called from the engine loop and must not block.
type Publisher interface {
	PublishValue(ctx context.Context, u Update)
	PublishFault(ctx context.Context, f FaultEvent)
}

// Publishers fans out to several publishers in order.
type Publishers []Publisher

// PublishValue implements Publisher.
func (ps Publishers) PublishValue(ctx context.Context, u Update) {
	for _, p := range ps {
		p.PublishValue(ctx, u)
	}
}

// PublishFault implements Publisher.
func (ps Publishers) PublishFault(ctx context.Context, f FaultEvent) {
	for _, p := range ps {
		p.PublishFault(ctx, f)
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishValue(context.Context, Update)     {}
func (noopPublisher) PublishFault(context.Context, FaultEvent) {}

// DecodeValue converts a JSON scalar into a value for SetValue. Numbers
// become floats and strings stay option tokens.
func DecodeValue(raw json.RawMessage) (entity.Value, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return entity.Value{}, err
	}
	switch x := v.(type) {
	case float64:
		return entity.Float(x), nil
	case string:
		return entity.String(x), nil
	case bool:
		return entity.Bool(x), nil
	default:
		return entity.Value{}, ErrInvalidValue
	}
}
