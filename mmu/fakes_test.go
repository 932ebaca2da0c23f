package mmu

import (
	"errors"
	"sync"
	"time"
)

type fakePrinter struct {
	mu   sync.Mutex
	sent []Command
	held bool
}

func (f *fakePrinter) SendCommand(cmd Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
}

func (f *fakePrinter) SetJobOnHold(on bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if on && f.held {
		return false
	}
	f.held = on
	return true
}

func (f *fakePrinter) isHeld() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held
}

func (f *fakePrinter) sentCommands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.sent))
	copy(out, f.sent)
	return out
}

type notification struct {
	action  string
	payload map[string]interface{}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (f *fakeNotifier) Notify(action string, payload map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notification{action: action, payload: payload})
}

func (f *fakeNotifier) count(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.action == action {
			n++
		}
	}
	return n
}

type memSettings struct {
	mu       sync.Mutex
	data     map[string]interface{}
	saves    int
	failSave bool
}

func newMemSettings() *memSettings {
	return &memSettings{data: map[string]interface{}{}}
}

func (m *memSettings) Get(key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, errors.New("no such setting " + key)
	}
	return value, nil
}

func (m *memSettings) Set(key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memSettings) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failSave {
		return errors.New("disk full")
	}
	return nil
}

func (m *memSettings) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func newTestPlugin() (*Plugin, *fakePrinter, *fakeNotifier, *memSettings) {
	printer := &fakePrinter{}
	notifier := &fakeNotifier{}
	settings := newMemSettings()
	plugin := NewPlugin(printer, notifier, nil, settings)
	return plugin, printer, notifier, settings
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
