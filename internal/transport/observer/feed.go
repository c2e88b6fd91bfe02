package observer

import (
	"encoding/json"
	"sync"

	"auctionhouse/internal/auction"
	"auctionhouse/internal/protocol"
)

// Feed broadcasts audit events to connected observers. Publish never
// blocks: slow subscribers miss events rather than stalling the core.
type Feed struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[string]chan []byte)}
}

func (f *Feed) Publish(e auction.Event) {
	msg := protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		EventID:         e.ID,
		Seq:             e.Seq,
		Time:            e.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Kind:            e.Kind,
		Round:           e.Round,
		Turn:            e.Turn,
		Participant:     e.Participant,
		Amount:          e.Amount,
		Detail:          e.Detail,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

func (f *Feed) subscribe(id string, ch chan []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[id] = ch
}

func (f *Feed) unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, id)
}

// Subscribers reports the current observer count.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
