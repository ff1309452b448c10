// ABOUTME: In-memory fan-out of view model updates to front-end subscribers
// ABOUTME: Implements widget.Sink; slow subscribers drop updates instead of blocking the widget

package presenter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/coven-chat/internal/widget"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Update is one rendered frame. Diff is relative to the previous frame
// published by the broadcaster; a subscriber that missed frames should
// render View in full.
type Update struct {
	View ViewModel
	Diff Diff
}

// Broadcaster turns widget snapshots into view model updates and fans them
// out to every subscriber.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Update // subID -> ch
	last        ViewModel
	logger      *slog.Logger
}

var _ widget.Sink = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan Update),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber. The channel first receives the latest
// view, if any, and is closed when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan Update, string) {
	subID := uuid.New().String()
	ch := make(chan Update, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	if b.last.Version > 0 {
		ch <- Update{View: b.last, Diff: Compute(ViewModel{}, b.last)}
	}
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish builds the view for snap and sends it to all subscribers.
// Non-blocking: updates are dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(snap widget.Snapshot) {
	view := Build(snap)

	b.mu.Lock()
	defer b.mu.Unlock()

	update := Update{View: view, Diff: Compute(b.last, view)}
	b.last = view
	if update.Diff.Empty() {
		return
	}

	for subID, ch := range b.subscribers {
		select {
		case ch <- update:
		default:
			b.logger.Debug("dropped update for slow subscriber",
				"sub_id", subID,
				"version", view.Version)
		}
	}
}

// Latest returns the most recently published view.
func (b *Broadcaster) Latest() ViewModel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, exists := b.subscribers[subID]
	if !exists {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}

	b.logger.Debug("broadcaster closed")
}
