// this file implements the live audio tap used by diagnostic consumers
package myaudio

import (
	"sync"
)

// LiveTap fans captured PCM blocks out to diagnostic subscribers (VU
// meters, listeners, plotters). Delivery is drop-on-slow-consumer: a
// subscriber that falls behind loses blocks, the capture path never blocks.
type LiveTap struct {
	mu     sync.RWMutex
	subs   map[uint64]chan []byte
	nextID uint64
}

// TapSubscription is one live audio subscription. Receive from C; Close
// when done.
type TapSubscription struct {
	ID  uint64
	C   <-chan []byte
	tap *LiveTap
}

// NewLiveTap creates an empty tap hub.
func NewLiveTap() *LiveTap {
	return &LiveTap{
		subs: make(map[uint64]chan []byte),
	}
}

// Subscribe registers a consumer with the given channel buffer depth.
func (t *LiveTap) Subscribe(depth int) *TapSubscription {
	if depth <= 0 {
		depth = 8
	}
	ch := make(chan []byte, depth)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.subs[id] = ch

	return &TapSubscription{ID: id, C: ch, tap: t}
}

// Close removes the subscription. Pending blocks are discarded.
func (s *TapSubscription) Close() {
	s.tap.mu.Lock()
	defer s.tap.mu.Unlock()
	if ch, ok := s.tap.subs[s.ID]; ok {
		delete(s.tap.subs, s.ID)
		close(ch)
	}
}

// HasSubscribers reports whether anyone is listening. The capture callback
// checks this before copying data.
func (t *LiveTap) HasSubscribers() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs) > 0
}

// Publish copies the block once and offers it to every subscriber without
// blocking.
func (t *LiveTap) Publish(pcm []byte) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.subs) == 0 {
		return
	}

	block := make([]byte, len(pcm))
	copy(block, pcm)

	for _, ch := range t.subs {
		select {
		case ch <- block:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (t *LiveTap) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
