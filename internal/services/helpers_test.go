package services

import (
	"context"
	"sync"

	"rvkernel/internal/dependency"
	"rvkernel/internal/events"
)

type fakeInstance struct {
	name string
}

// journal is an ordered, concurrency-safe log of side effects.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) get() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) count(s string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, e := range j.entries {
		if e == s {
			n++
		}
	}
	return n
}

func (j *journal) index(s string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, e := range j.entries {
		if e == s {
			return i
		}
	}
	return -1
}

// service builds a definition whose init and stop write to j.
func service(j *journal, name string, deps ...dependency.Dependency) Definition {
	return Definition{
		Name:         name,
		Dependencies: deps,
		Init: func(context.Context) (any, error) {
			j.add("init:" + name)
			return &fakeInstance{name: name}, nil
		},
		Stop: func(context.Context, any) error {
			j.add("stop:" + name)
			return nil
		},
	}
}

// failureJournal subscribes a listener that records Failed events.
func failureJournal(bus *events.Bus, j *journal) {
	bus.Subscribe("journal", 0, events.Hooks{
		Failed: func(_ context.Context, e events.LifecycleEvent) error {
			j.add("failed:" + e.ServiceName)
			return nil
		},
	})
}
