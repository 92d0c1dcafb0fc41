package core

import "sync"

type EventContext struct {
	Data struct {
		I64 [2]int64
		U64 [2]uint64
		F64 [2]float64

		I32 [4]int32
		U32 [4]uint32
		F32 [4]float32

		C [4]string
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * u32 width = data.U32[0];
	 * u32 height = data.U32[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A watched shader binary changed on disk.
	/* Context usage:
	 * string path = data.C[0];
	 */
	EVENT_CODE_SHADER_CHANGED SystemEventCode = 0x09

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	mu         sync.Mutex
	registered map[SystemEventCode][]registeredEvent
}

var eventState = &eventSystemState{
	registered: make(map[SystemEventCode][]registeredEvent),
}

// EventShutdown drops every registration.
func EventShutdown() {
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered = make(map[SystemEventCode][]registeredEvent)
}

// EventRegister listens for events sent with the provided code. A listener
// can register once per code; duplicates return false.
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	for _, e := range eventState.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// EventUnregister stops listener from receiving code. It returns false when
// no matching registration exists.
func EventUnregister(code SystemEventCode, listener interface{}) bool {
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire sends an event to the listeners of code in registration order.
// If a handler returns true the event is considered handled and is not
// passed on to any more listeners.
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	eventState.mu.Lock()
	events := append([]registeredEvent(nil), eventState.registered[code]...)
	eventState.mu.Unlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}
