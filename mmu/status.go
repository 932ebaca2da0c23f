package mmu

// Status is the last firmware-reported MMU condition, kept for display and
// restored across restarts.
type Status string

const (
	StatusOK         Status = "OK"
	StatusAttention  Status = "ATTENTION"
	StatusPausedUser Status = "PAUSED_USER"
	StatusUnloading  Status = "UNLOADING"
	StatusLoading    Status = "LOADING"
	StatusLoaded     Status = "LOADED"
)

// linePatterns is evaluated in order, first match wins.
var linePatterns = []struct {
	substr string
	status Status
}{
	{"paused for user", StatusPausedUser},
	{"MMU not responding", StatusAttention},
	{"MMU - ENABLED", StatusOK},
	{"MMU starts responding", StatusOK},
	{"Unloading finished", StatusUnloading},
	{"MMU can_load", StatusLoading},
	{"OO succeeded", StatusLoaded},
}
