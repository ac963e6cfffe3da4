// Package obs emits typed observability events with a fixed envelope.
// The core only emits; schema validation and storage live outside the
// process.
package obs

import "go.uber.org/zap"

// Field is one event-specific key/value pair.
type Field = zap.Field

// F builds an event-specific field.
func F(key string, value interface{}) Field { return zap.Any(key, value) }

// Emitter tags every event with its component. Envelope fields `_ts` and
// `_level` come from the zap core; `_component` and `_event` are added
// here.
type Emitter struct {
	log       *zap.Logger
	component string
}

func NewEmitter(log *zap.Logger, component string) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{log: log, component: component}
}

// With returns an emitter that also tags roomCode on every event.
func (e *Emitter) WithRoom(roomCode string) *Emitter {
	return &Emitter{
		log:       e.log.With(zap.String("roomCode", roomCode)),
		component: e.component,
	}
}

// Emit records an info-level event, e.g. "seat.assigned" or
// "state.transition".
func (e *Emitter) Emit(event string, fields ...Field) {
	e.log.Info(event, e.envelope(event, fields)...)
}

// Warn records a degraded-but-recovering event, e.g. "storage.retry".
func (e *Emitter) Warn(event string, fields ...Field) {
	e.log.Warn(event, e.envelope(event, fields)...)
}

// Error records an `error.*` event.
func (e *Emitter) Error(event string, err error, fields ...Field) {
	fields = append(fields, zap.Error(err))
	e.log.Error(event, e.envelope(event, fields)...)
}

func (e *Emitter) envelope(event string, fields []Field) []Field {
	out := make([]Field, 0, len(fields)+2)
	out = append(out,
		zap.String("_component", e.component),
		zap.String("_event", event),
	)
	return append(out, fields...)
}
