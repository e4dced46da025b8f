package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Scheduler. Callbacks run synchronously on
// the goroutine calling Advance, in due-time order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	tasks  map[int]*fakeTask
}

type fakeTask struct {
	id       int
	due      time.Time
	interval time.Duration
	fn       func()
}

// NewFake returns a Fake starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start, tasks: make(map[int]*fakeTask)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Schedule(d time.Duration, fn func()) Cancel {
	return f.add(d, 0, fn)
}

func (f *Fake) ScheduleRepeating(interval time.Duration, fn func()) Cancel {
	return f.add(interval, interval, fn)
}

// Pending returns the number of scheduled callbacks.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// Advance moves the clock forward by d, firing every callback that
// becomes due. Repeating callbacks fire once per elapsed interval.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		task := f.nextDue(target)
		if task == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = task.due
		if task.interval > 0 {
			task.due = task.due.Add(task.interval)
		} else {
			delete(f.tasks, task.id)
		}
		fn := task.fn
		f.mu.Unlock()

		fn()
	}
}

func (f *Fake) add(d, interval time.Duration, fn func()) Cancel {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.tasks[id] = &fakeTask{id: id, due: f.now.Add(d), interval: interval, fn: fn}

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.tasks, id)
	}
}

func (f *Fake) nextDue(target time.Time) *fakeTask {
	due := make([]*fakeTask, 0, len(f.tasks))
	for _, t := range f.tasks {
		if !t.due.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})
	return due[0]
}
