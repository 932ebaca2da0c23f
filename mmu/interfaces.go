package mmu

// Printer is the lower transport layer that owns the physical link. Both
// calls are synchronous and fast: SendCommand only enqueues, SetJobOnHold
// flips the outbound-stream hold and reports whether the request took effect
// (acquiring an already-held stream fails).
type Printer interface {
	SendCommand(cmd Command)
	SetJobOnHold(on bool) bool
}

// Notifier is the UI push channel. Actions are "show", "close" and "nav".
type Notifier interface {
	Notify(action string, payload map[string]interface{})
}

// PermissionChecker gates the operator's filament choice.
type PermissionChecker interface {
	CanChoose() bool
}

// PermissionFunc adapts a plain func to PermissionChecker.
type PermissionFunc func() bool

func (f PermissionFunc) CanChoose() bool { return f() }

// Settings is the persistence collaborator. Persistence is best-effort for
// the state machine: errors from here are logged and swallowed, never used
// for control flow.
type Settings interface {
	Get(key string) (interface{}, error)
	Set(key string, value interface{}) error
	Save() error
}
