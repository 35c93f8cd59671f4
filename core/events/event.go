package events

// Event represents a structured state change emitted by the market.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (audit journal,
// brokers, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans a single event stream out to several emitters.
type MultiEmitter struct {
	emitters []Emitter
}

func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	out := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return &MultiEmitter{emitters: out}
}

// Emit implements the Emitter interface.
func (m *MultiEmitter) Emit(e Event) {
	if m == nil {
		return
	}
	for _, emitter := range m.emitters {
		emitter.Emit(e)
	}
}

// Recorder collects emitted events in order. Test helper.
type Recorder struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(e Event) {
	r.Events = append(r.Events, e)
}

// ByType returns the recorded events matching the given type, in order.
func (r *Recorder) ByType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
