package mmu

import "fmt"

// Command is one outbound G-code line about to be handed to the printer.
// FromTimeout marks the synthetic tool-change the prompt timer sends so the
// gate lets it through instead of opening another prompt.
type Command struct {
	Text        string
	FromTimeout bool
}

type Action int

const (
	ActionPass Action = iota
	ActionSuppress
	ActionRewrite
)

// Decision is the gate's verdict on one outbound command.
type Decision struct {
	Action Action
	Tool   int // resolved tool index, valid for ActionRewrite only
}

// Apply materializes the decision: the commands the lower layer should
// actually write, in order. Suppress yields none; Rewrite yields the original
// command followed by the tool selection.
func (d Decision) Apply(cmd Command) []Command {
	switch d.Action {
	case ActionSuppress:
		return nil
	case ActionRewrite:
		return []Command{cmd, {Text: fmt.Sprintf("T%d", d.Tool)}}
	default:
		return []Command{cmd}
	}
}
