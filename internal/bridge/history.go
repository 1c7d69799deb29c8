package bridge

import (
	"context"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/engine"
)

// HistoryWriter stores time series points. *influxdb.Client satisfies it;
// its writes are asynchronous and never block the caller.
type HistoryWriter interface {
	WriteEntityValue(entityID, kind string, value float64, ts time.Time)
	WriteFault(fault string, ts time.Time)
}

// History is an engine.Publisher that records numeric and boolean values
// and fault confirmations. Text values are not recorded.
type History struct {
	w HistoryWriter
}

// NewHistory returns a publisher writing to w.
func NewHistory(w HistoryWriter) *History {
	return &History{w: w}
}

// PublishValue implements engine.Publisher.
func (h *History) PublishValue(_ context.Context, u engine.Update) {
	f, ok := u.Value.Float()
	if !ok {
		return
	}
	h.w.WriteEntityValue(u.ID, string(u.Kind), f, u.Timestamp)
}

// PublishFault implements engine.Publisher.
func (h *History) PublishFault(_ context.Context, f engine.FaultEvent) {
	h.w.WriteFault(string(f.Fault), f.Timestamp)
}
