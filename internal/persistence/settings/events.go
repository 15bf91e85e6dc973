package settings

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// EventKind 生命周期事件类型。
type EventKind int

const (
	SaveStart EventKind = iota
	SaveEnd
	SaveError
	LoadStart
	LoadEnd
	LoadError
)

var eventKindNames = [...]string{
	SaveStart: "save_start",
	SaveEnd:   "save_end",
	SaveError: "save_error",
	LoadStart: "load_start",
	LoadEnd:   "load_end",
	LoadError: "load_error",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event 一次存取操作的生命周期事件。
//
// 同一次操作的所有事件共享 OperationID，顺序总是 Start、（Error）、End。
type Event struct {
	Kind        EventKind
	Name        string
	Slot        int
	OperationID uuid.UUID
	Err         error
	At          time.Time
}

// Listener 事件回调，在触发事件的协程中同步执行。
type Listener func(Event)

type listenerEntry struct {
	id uint64
	fn Listener
}

type listenerRegistry struct {
	nextID    atomic.Uint64
	mu        sync.RWMutex
	listeners []listenerEntry
}

func (r *listenerRegistry) add(fn Listener) func() {
	id := r.nextID.Inc()

	r.mu.Lock()
	r.listeners = append(r.listeners, listenerEntry{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, l := range r.listeners {
				if l.id == id {
					r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (r *listenerRegistry) emit(e Event) {
	r.mu.RLock()
	listeners := r.listeners
	r.mu.RUnlock()

	for _, l := range listeners {
		l.fn(e)
	}
}
