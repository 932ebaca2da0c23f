package mmu

import (
	"errors"
	"strings"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"

	"prusammu/common/logger"
	"prusammu/common/sys"
)

// Caller-visible rejections of the select operation. Everything else the
// state machine hits (hold denied, persist failures) is handled internally.
var (
	ErrPermissionDenied = errors.New("insufficient permissions")
	ErrNoActivePrompt   = errors.New("no active prompt")
	ErrInvalidChoice    = errors.New("invalid filament choice")
)

// session is one in-flight filament prompt. resolved flips exactly once,
// under the plugin mutex; whichever of the timer and the operator choice
// arrives second sees it set and backs off.
type session struct {
	id       string
	timer    *time.Timer
	resolved bool
}

// Plugin is the coordination core: it watches the outbound command stream for
// tool changes, prompts the operator for a slot, and rewrites the following
// temperature command with the chosen tool. One instance is built at startup
// and owns all mutable state.
type Plugin struct {
	printer  Printer
	notifier Notifier
	perm     PermissionChecker
	bridge   *Bridge
	tracker  *Tracker

	mu          sync.Mutex
	session     *session
	pendingTool int // tool awaiting the next M109 rewrite, -1 when none
}

func NewPlugin(printer Printer, notifier Notifier, perm PermissionChecker, settings Settings) *Plugin {
	bridge := NewBridge(settings)
	return &Plugin{
		printer:     printer,
		notifier:    notifier,
		perm:        perm,
		bridge:      bridge,
		tracker:     NewTracker(bridge, notifier),
		pendingTool: -1,
	}
}

// SetPrinter attaches the transport after construction. The transport's
// hooks point back at the plugin, so one of the two has to be wired late.
func (p *Plugin) SetPrinter(printer Printer) {
	p.printer = printer
}

// SetNotifier attaches the UI channel after construction; the broadcaster
// needs the bridge, which the plugin owns.
func (p *Plugin) SetNotifier(notifier Notifier) {
	p.notifier = notifier
	p.tracker.setNotifier(notifier)
}

func (p *Plugin) Bridge() *Bridge   { return p.bridge }
func (p *Plugin) Tracker() *Tracker { return p.tracker }

// Startup restores the persisted display state. A print may have been mid
// filament change when the daemon went down; showing the stale state beats
// showing nothing.
func (p *Plugin) Startup() {
	state, tool := p.bridge.RestoreState()
	p.tracker.SetActiveTool(tool)
	p.tracker.Update(state)
	logger.Infof("startup state %s tool %d", state, tool)
}

// GcodeReceived observes one inbound firmware line and returns it unchanged.
func (p *Plugin) GcodeReceived(line string) string {
	if status, ok := ClassifyLine(line); ok {
		p.tracker.Update(status)
	}
	return line
}

// GcodeQueuing inspects one outbound command before it is written.
//
// Only Tx (tool change) and M109 (set temperature and wait) matter here; the
// firmware pairs them during a filament change, so M109 is the carrier for
// the resolved tool index. Everything else passes through untouched.
func (p *Plugin) GcodeQueuing(cmd Command) Decision {
	if !strings.HasPrefix(cmd.Text, "Tx") && !strings.HasPrefix(cmd.Text, "M109") {
		return Decision{Action: ActionPass}
	}

	// The timeout path re-sends Tx itself; letting it back into the gate
	// would open a second prompt forever.
	if cmd.FromTimeout {
		return Decision{Action: ActionPass}
	}

	if strings.HasPrefix(cmd.Text, "M109") {
		p.mu.Lock()
		tool := p.pendingTool
		p.pendingTool = -1
		p.mu.Unlock()
		if tool < 0 {
			return Decision{Action: ActionPass}
		}
		logger.Infof("gate: rewriting %q with T%d", cmd.Text, tool)
		p.tracker.SetActiveTool(tool)
		p.tracker.Refresh()
		return Decision{Action: ActionRewrite, Tool: tool}
	}

	// Tx. Take the hold first: if another prompt already owns the stream the
	// command is dropped rather than queued behind it.
	if !p.printer.SetJobOnHold(true) {
		logger.Warnf("gate: hold denied, dropping %q", cmd.Text)
		return Decision{Action: ActionPass}
	}

	if tool := p.bridge.DefaultFilament(); tool >= 0 {
		// Operator opted out of prompting; resolve to the configured slot.
		logger.Infof("gate: default filament T%d, skipping prompt", tool)
		p.mu.Lock()
		p.pendingTool = tool
		p.mu.Unlock()
		p.printer.SetJobOnHold(false)
		return Decision{Action: ActionSuppress}
	}

	p.openPrompt()
	return Decision{Action: ActionSuppress}
}

func (p *Plugin) openPrompt() {
	timeout := p.bridge.Timeout()

	p.mu.Lock()
	s := &session{id: uuid.NewV4().String()}
	s.timer = time.AfterFunc(time.Duration(timeout)*time.Second, func() {
		defer sys.CatchPanic()
		p.timeoutPrompt(s)
	})
	p.session = s
	p.mu.Unlock()

	logger.Infof("prompt %s open, timeout %ds", s.id, timeout)
	p.notify("show", map[string]interface{}{"id": s.id})
}

// timeoutPrompt is the timer-fired resolution: tell the firmware to fall back
// to its own selection and close up. No substitution is recorded because no
// explicit tool was chosen.
func (p *Plugin) timeoutPrompt(s *session) {
	p.mu.Lock()
	if p.session != s || s.resolved {
		p.mu.Unlock()
		return
	}
	s.resolved = true
	p.session = nil
	p.mu.Unlock()

	logger.Infof("prompt %s timed out", s.id)
	p.printer.SendCommand(Command{Text: "Tx", FromTimeout: true})
	p.closePrompt(s)
}

// Select resolves the open prompt with the operator's choice. The chosen tool
// is applied to the next M109, not sent directly.
func (p *Plugin) Select(choice int) error {
	if p.perm != nil && !p.perm.CanChoose() {
		return ErrPermissionDenied
	}

	p.mu.Lock()
	s := p.session
	if s == nil || s.resolved {
		p.mu.Unlock()
		return ErrNoActivePrompt
	}
	if choice < 0 || choice >= FilamentSlots {
		p.mu.Unlock()
		return ErrInvalidChoice
	}
	s.resolved = true
	p.session = nil
	p.pendingTool = choice
	p.mu.Unlock()

	logger.Infof("prompt %s resolved: T%d", s.id, choice)
	p.tracker.SetActiveTool(choice)
	p.closePrompt(s)
	return nil
}

// closePrompt runs exactly once per session, on either resolution path:
// stop the timer, tell the UI, release the stream.
func (p *Plugin) closePrompt(s *session) {
	s.timer.Stop()
	p.notify("close", map[string]interface{}{"id": s.id})
	p.printer.SetJobOnHold(false)
}

func (p *Plugin) notify(action string, payload map[string]interface{}) {
	if p.notifier != nil {
		p.notifier.Notify(action, payload)
	}
}

// PromptActive reports whether an operator choice is currently awaited.
func (p *Plugin) PromptActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// ActiveTool answers the gettool query.
func (p *Plugin) ActiveTool() int {
	return p.tracker.ActiveTool()
}
