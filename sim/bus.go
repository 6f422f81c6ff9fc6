// sim/bus.go
package sim

// TopicWildcard subscribes a handler to every event type.
const TopicWildcard = "*"

// Handler consumes one envelope. A non-nil error marks the handler as faulty
// for that emission; it does not stop delivery to other handlers.
type Handler func(ev Envelope) error

// subscription pairs a handler with the topic it was registered under.
// Registration order within a topic defines dispatch order.
type subscription struct {
	topic   string
	handler Handler
	order   int
}

// EventBus is a synchronous publish/subscribe dispatcher. It decouples event
// producers (generators, noise channels) from consumers (output adapters,
// correlation logic) without interpreting or transforming envelopes.
//
// Not safe for concurrent use; the simulation is single-threaded.
type EventBus struct {
	exact    map[string][]subscription
	wildcard []subscription
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{exact: make(map[string][]subscription)}
}

// Subscribe registers a handler for an exact event type, or for all event
// types when topic is TopicWildcard. Handlers may be added before or during a
// run; a handler added while an event is being dispatched is not notified of
// that event.
func (b *EventBus) Subscribe(topic string, h Handler) {
	sub := subscription{topic: topic, handler: h}
	if topic == TopicWildcard {
		sub.order = len(b.wildcard)
		b.wildcard = append(b.wildcard, sub)
		return
	}
	sub.order = len(b.exact[topic])
	b.exact[topic] = append(b.exact[topic], sub)
}

// Emit dispatches ev synchronously, in the calling thread, to every handler
// whose topic matches ev.EventType: exact-topic subscribers first, then
// wildcard subscribers, each group in registration order.
//
// The recipient set is snapshotted when Emit starts, so subscriptions made by
// a handler during dispatch do not receive the event being dispatched.
//
// Handler failures are isolated: every matching handler runs regardless of
// earlier failures, and the failures are returned together afterwards as a
// *DispatchError. A nil return means every handler succeeded.
func (b *EventBus) Emit(ev Envelope) error {
	matching := b.exact[ev.EventType]
	snapshot := make([]subscription, 0, len(matching)+len(b.wildcard))
	snapshot = append(snapshot, matching...)
	snapshot = append(snapshot, b.wildcard...)

	var faults []HandlerFault
	for _, sub := range snapshot {
		if err := sub.handler(ev); err != nil {
			faults = append(faults, HandlerFault{
				Topic: sub.topic,
				Index: sub.order,
				Err:   err,
			})
		}
	}
	if len(faults) > 0 {
		return &DispatchError{EventType: ev.EventType, Faults: faults}
	}
	return nil
}
