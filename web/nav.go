package web

import (
	"fmt"

	"github.com/flosch/pongo2/v5"

	"prusammu/common/logger"
	"prusammu/mmu"
)

// navTemplate renders the filament part of the nav indicator. Slots are shown
// 1-based to the operator.
var navTemplate = pongo2.Must(pongo2.FromString(
	`{% if name %}{{ name }}{% else %}Filament {{ num }}{% endif %}`))

// NavLabel is the human-readable nav text for the given tool and status:
// the configured filament name (or slot number) plus the MMU state.
func NavLabel(bridge *mmu.Bridge, tool int, state mmu.Status) string {
	if tool < 0 || tool >= mmu.FilamentSlots || !bridge.DisplayActiveFilament() {
		return string(state)
	}

	filament := bridge.Filaments()[tool]
	out, err := navTemplate.Execute(pongo2.Context{
		"name":  filament.Name,
		"color": filament.Color,
		"num":   tool + 1,
	})
	if err != nil {
		logger.Warnf("nav template: %v", err)
		return string(state)
	}
	return fmt.Sprintf("%s (%s)", out, state)
}
