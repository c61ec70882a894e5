package volume

import "sync"

// EventType identifies one kind of engine event.
type EventType uint8

const (
	EventLoadingStart EventType = iota
	EventLoadingComplete
	EventLoadingSkipped
	EventResolutionChange
	EventPopulateComplete
	EventClipPlanesChange
	EventSlabLoadingStart
	EventSlabLoadingComplete
	EventTimeChange
	EventLoadingError
)

// Trigger tags the event that caused an operation.
type Trigger string

const (
	TriggerInitial           Trigger = "initial"
	TriggerClipPlanesChanged Trigger = "clipPlanesChanged"
	TriggerViewportChanged   Trigger = "viewportChanged"
	TriggerSliceChanged      Trigger = "sliceChanged"
	TriggerTimeChanged       Trigger = "timeChanged"
)

// Event is the payload delivered to subscribers. Only the fields relevant
// to Type are meaningful; it is a plain struct rather than a set of
// per-event types because every event flows through the same generic
// subscription sink.
type Event struct {
	Type    EventType
	Trigger Trigger

	Level         int
	PreviousLevel int
	TargetLevel   int

	Reason string // for EventLoadingSkipped

	Axis               SliceType
	SlabStart, SlabEnd int

	TimeIndex, PreviousTimeIndex int
	TimeValue                    float64
	Cached                       bool

	Planes ClipPlaneSet

	ErrKind Kind
	Err     error
}

type eventHandler struct {
	id uint64
	fn func(Event)
}

// CallbackHandle allows removing a registered event subscription,
// following a CallbackHandle/handlerRegistry pattern, generalized from
// per-gesture slices to a single EventType-keyed registry.
type CallbackHandle struct {
	id    uint64
	typ   EventType
	sink  *eventSink
}

// Unsubscribe removes this callback so it no longer fires.
func (h CallbackHandle) Unsubscribe() {
	if h.sink == nil {
		return
	}
	h.sink.remove(h.typ, h.id)
}

type eventSink struct {
	mu       sync.Mutex
	handlers map[EventType][]eventHandler
	nextID   uint64
}

func newEventSink() *eventSink {
	return &eventSink{handlers: make(map[EventType][]eventHandler)}
}

// subscribe registers fn for events of type typ and returns a handle that
// can later unsubscribe it.
func (s *eventSink) subscribe(typ EventType, fn func(Event)) CallbackHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.handlers[typ] = append(s.handlers[typ], eventHandler{id: id, fn: fn})
	return CallbackHandle{id: id, typ: typ, sink: s}
}

func (s *eventSink) remove(typ EventType, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.handlers[typ]
	for i, h := range list {
		if h.id == id {
			s.handlers[typ] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// emit fires every handler registered for e.Type, in registration order.
// A panicking handler is caught and logged rather than propagated.
func (s *eventSink) emit(e Event) {
	s.mu.Lock()
	list := make([]eventHandler, len(s.handlers[e.Type]))
	copy(list, s.handlers[e.Type])
	s.mu.Unlock()

	for _, h := range list {
		func() {
			defer func() {
				if r := recover(); r != nil {
					debugf("event listener panic: %v", r)
				}
			}()
			h.fn(e)
		}()
	}
}
