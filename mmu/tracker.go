package mmu

import (
	"sync"

	"prusammu/common/logger"
)

// Tracker holds the last-known MMU status and the active tool. Status updates
// are change-only: repeating the current status neither persists nor
// notifies. Persistence failures are logged and swallowed; the in-memory
// state always wins.
type Tracker struct {
	mu       sync.Mutex
	bridge   *Bridge
	notifier Notifier
	status   Status
	tool     int // -1 when unset
}

func NewTracker(bridge *Bridge, notifier Notifier) *Tracker {
	return &Tracker{
		bridge:   bridge,
		notifier: notifier,
		status:   StatusOK,
		tool:     -1,
	}
}

func (t *Tracker) setNotifier(notifier Notifier) {
	t.mu.Lock()
	t.notifier = notifier
	t.mu.Unlock()
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tracker) ActiveTool() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tool
}

// SetActiveTool records the tool without persisting or notifying. The caller
// follows up with Refresh (or a status Update) when the change should reach
// the UI.
func (t *Tracker) SetActiveTool(tool int) {
	t.mu.Lock()
	t.tool = tool
	t.mu.Unlock()
}

// Update applies a classified status. Same status twice in a row is a
// complete no-op.
func (t *Tracker) Update(status Status) {
	t.mu.Lock()
	if status == t.status {
		t.mu.Unlock()
		return
	}
	t.status = status
	tool := t.tool
	t.mu.Unlock()

	logger.Infof("mmu status %s tool %d", status, tool)
	t.publish(status, tool)
}

// Refresh re-sends the current state unconditionally. Used after a tool
// rewrite, where the tool changed but the status may not have.
func (t *Tracker) Refresh() {
	t.mu.Lock()
	status := t.status
	tool := t.tool
	t.mu.Unlock()

	t.publish(status, tool)
}

func (t *Tracker) publish(status Status, tool int) {
	if err := t.bridge.SaveState(status, tool); err != nil {
		logger.Warnf("mmu state persist failed (state %s tool %d): %v", status, tool, err)
	}
	t.mu.Lock()
	notifier := t.notifier
	t.mu.Unlock()
	if notifier != nil {
		notifier.Notify("nav", map[string]interface{}{
			"tool":  tool,
			"state": string(status),
		})
	}
}
