package scheduler

import (
	"sync"
	"time"
)

type manualTask struct {
	handle *Handle
	fn     func(*Handle)
}

// maxLate bounds how many cancelled tasks keep one pending late tick.
const maxLate = 8

// Manual is a Scheduler whose tasks only fire when Tick is called. It makes
// playback progress deterministic in tests and simulations.
type Manual struct {
	mu    sync.Mutex
	tasks []manualTask
	// late holds recently cancelled tasks until Fire delivers their one
	// in-flight tick, oldest first.
	late []manualTask
}

// NewManual returns an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Every(interval time.Duration, fn func(*Handle)) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := newHandle(interval)
	m.tasks = append(m.tasks, manualTask{handle: h, fn: fn})
	return h
}

func (m *Manual) Cancel(h *Handle) {
	if h == nil {
		return
	}
	h.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, task := range m.tasks {
		if task.handle == h {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			m.late = append(m.late, task)
			if len(m.late) > maxLate {
				m.late = append(m.late[:0:0], m.late[len(m.late)-maxLate:]...)
			}
			break
		}
	}
}

// Tick fires every live task n times.
func (m *Manual) Tick(n int) {
	for i := 0; i < n; i++ {
		m.mu.Lock()
		tasks := make([]manualTask, len(m.tasks))
		copy(tasks, m.tasks)
		m.mu.Unlock()

		for _, task := range tasks {
			if !task.handle.Cancelled() {
				task.fn(task.handle)
			}
		}
	}
}

// Fire invokes the callback registered for h even if h was cancelled,
// simulating a tick that was already in flight when Cancel ran. A cancelled
// task gets at most one such tick and is forgotten afterwards.
func (m *Manual) Fire(h *Handle) {
	m.mu.Lock()
	var fn func(*Handle)
	for _, task := range m.tasks {
		if task.handle == h {
			fn = task.fn
			break
		}
	}
	if fn == nil {
		for i, task := range m.late {
			if task.handle == h {
				fn = task.fn
				m.late = append(m.late[:i], m.late[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if fn != nil {
		fn(h)
	}
}

// Active returns the number of tasks that have not been cancelled.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
