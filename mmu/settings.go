package mmu

import (
	"strconv"

	"go.uber.org/multierr"
)

const DefaultTimeout = 30

// Settings keys shared with the persistence store and the web layer.
const (
	KeyTimeout               = "timeout"
	KeyUseDefaultFilament    = "useDefaultFilament"
	KeyDisplayActiveFilament = "displayActiveFilament"
	KeyDefaultFilament       = "defaultFilament"
	KeyFilament              = "filament"
	KeyMmuState              = "mmuState"
	KeyMmuTool               = "mmuTool"
)

// FilamentSlots is the number of slots the MMU hardware offers; choices are
// indexed 0..FilamentSlots-1.
const FilamentSlots = 5

// Filament is one configured slot of the filament table.
type Filament struct {
	Name    string `json:"name"`
	Color   string `json:"color"`
	Enabled bool   `json:"enabled"`
	ID      int    `json:"id"`
}

// Bridge wraps the raw key/value settings collaborator with typed accessors,
// value coercion and the save-time normalization rules. Values coming back
// from a JSON-backed store arrive as float64/bool/string, so every getter
// coerces defensively and falls back to the documented default.
type Bridge struct {
	settings Settings
}

func NewBridge(settings Settings) *Bridge {
	return &Bridge{settings: settings}
}

func (b *Bridge) Timeout() int {
	v, err := b.settings.Get(KeyTimeout)
	if err != nil {
		return DefaultTimeout
	}
	t, ok := toInt(v)
	if !ok || t < 0 {
		return DefaultTimeout
	}
	return t
}

func (b *Bridge) UseDefaultFilament() bool {
	v, err := b.settings.Get(KeyUseDefaultFilament)
	if err != nil {
		return false
	}
	u, _ := toBool(v)
	return u
}

// DefaultFilament returns the configured default slot, or -1 when no default
// applies (disabled, unset or out of range).
func (b *Bridge) DefaultFilament() int {
	if !b.UseDefaultFilament() {
		return -1
	}
	v, err := b.settings.Get(KeyDefaultFilament)
	if err != nil {
		return -1
	}
	d, ok := toInt(v)
	if !ok || d < 0 || d >= FilamentSlots {
		return -1
	}
	return d
}

func (b *Bridge) DisplayActiveFilament() bool {
	v, err := b.settings.Get(KeyDisplayActiveFilament)
	if err != nil {
		return false
	}
	d, _ := toBool(v)
	return d
}

// Filaments returns the 5-slot filament table, padding missing or malformed
// entries with empty enabled slots.
func (b *Bridge) Filaments() []Filament {
	table := make([]Filament, FilamentSlots)
	for i := range table {
		table[i] = Filament{Enabled: true, ID: i + 1}
	}

	v, err := b.settings.Get(KeyFilament)
	if err != nil {
		return table
	}
	raw, ok := v.([]interface{})
	if !ok {
		return table
	}
	for i := 0; i < len(raw) && i < FilamentSlots; i++ {
		rec, ok := raw[i].(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok := rec["name"].(string); ok {
			table[i].Name = name
		}
		if color, ok := rec["color"].(string); ok {
			table[i].Color = color
		}
		if enabled, ok := toBool(rec["enabled"]); ok {
			table[i].Enabled = enabled
		}
		if id, ok := toInt(rec["id"]); ok {
			table[i].ID = id
		}
	}
	return table
}

// SaveState persists the tracker's display state. All write errors are
// collected and reported as one; the caller logs and moves on.
func (b *Bridge) SaveState(state Status, tool int) error {
	toolValue := ""
	if tool >= 0 {
		toolValue = strconv.Itoa(tool)
	}
	return multierr.Combine(
		b.settings.Set(KeyMmuState, string(state)),
		b.settings.Set(KeyMmuTool, toolValue),
		b.settings.Save(),
	)
}

// RestoreState reads back what SaveState wrote; missing or unreadable values
// fall back to the fresh-start defaults (OK, no tool).
func (b *Bridge) RestoreState() (Status, int) {
	state := StatusOK
	if v, err := b.settings.Get(KeyMmuState); err == nil {
		if s, ok := v.(string); ok && s != "" {
			state = Status(s)
		}
	}
	tool := -1
	if v, err := b.settings.Get(KeyMmuTool); err == nil {
		if t, ok := toInt(v); ok && t >= 0 && t < FilamentSlots {
			tool = t
		}
	}
	return state, tool
}

// ApplyConfig normalizes and persists operator-edited settings:
//   - timeout must be a non-negative integer, anything else becomes the default
//   - useDefaultFilament=false clears defaultFilament to -1
//   - a negative defaultFilament turns useDefaultFilament off
func (b *Bridge) ApplyConfig(data map[string]interface{}) error {
	timeout, ok := toInt(data[KeyTimeout])
	if !ok || timeout < 0 {
		timeout = DefaultTimeout
	}

	useDefault, ok := toBool(data[KeyUseDefaultFilament])
	if !ok {
		useDefault = false
	}
	defaultFilament, ok := toInt(data[KeyDefaultFilament])
	if !ok {
		defaultFilament = -1
	}
	if !useDefault {
		defaultFilament = -1
	}
	if defaultFilament < 0 {
		useDefault = false
	}

	var err error
	err = multierr.Append(err, b.settings.Set(KeyTimeout, timeout))
	err = multierr.Append(err, b.settings.Set(KeyUseDefaultFilament, useDefault))
	err = multierr.Append(err, b.settings.Set(KeyDefaultFilament, defaultFilament))
	if display, ok := toBool(data[KeyDisplayActiveFilament]); ok {
		err = multierr.Append(err, b.settings.Set(KeyDisplayActiveFilament, display))
	}
	if filament, ok := data[KeyFilament].([]interface{}); ok {
		err = multierr.Append(err, b.settings.Set(KeyFilament, filament))
	}
	return multierr.Append(err, b.settings.Save())
}

// Config snapshots the operator-facing settings for the web layer.
func (b *Bridge) Config() map[string]interface{} {
	return map[string]interface{}{
		KeyTimeout:               b.Timeout(),
		KeyUseDefaultFilament:    b.UseDefaultFilament(),
		KeyDisplayActiveFilament: b.DisplayActiveFilament(),
		KeyDefaultFilament:       b.DefaultFilament(),
		KeyFilament:              b.Filaments(),
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case string:
		out, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return out, true
	default:
		return 0, false
	}
}

func toBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
