package web

import (
	"sync"

	"prusammu/common/logger"
	"prusammu/mmu"
)

// Message is one UI push: the plugin's "show"/"close"/"nav" notifications.
type Message struct {
	Action  string                 `json:"action"`
	Payload map[string]interface{} `json:"payload"`
}

// Broadcaster fans plugin notifications out to every connected event stream.
// It implements mmu.Notifier. Slow or stalled subscribers get messages
// dropped rather than blocking the state machine.
type Broadcaster struct {
	bridge *mmu.Bridge

	mu   sync.Mutex
	subs map[chan Message]struct{}
	last *Message // last nav message, replayed to new subscribers
}

func NewBroadcaster(bridge *mmu.Bridge) *Broadcaster {
	return &Broadcaster{
		bridge: bridge,
		subs:   map[chan Message]struct{}{},
	}
}

func (b *Broadcaster) Notify(action string, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if action == "nav" {
		tool, _ := payload["tool"].(int)
		state, _ := payload["state"].(string)
		payload["label"] = NavLabel(b.bridge, tool, mmu.Status(state))
	}
	msg := Message{Action: action, Payload: payload}

	b.mu.Lock()
	defer b.mu.Unlock()
	if action == "nav" {
		b.last = &msg
	}
	for sub := range b.subs {
		select {
		case sub <- msg:
		default:
			logger.Warnf("ui subscriber stalled, dropping %s", action)
		}
	}
}

// Subscribe registers a UI event stream. The returned cancel func must be
// called when the client goes away.
func (b *Broadcaster) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, 16)

	b.mu.Lock()
	if b.last != nil {
		ch <- *b.last
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}
