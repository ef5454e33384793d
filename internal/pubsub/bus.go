// Package pubsub is the in-process publish/subscribe backend fanning
// engagement events out to every WebSocket connection watching a meeting.
// No persistence: a message published while nobody is subscribed is lost,
// and a slow subscriber drops its oldest queued message rather than ever
// blocking the publisher.
package pubsub

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Bus is a collection of named channels, each fanning bytes out to whatever
// subscribers are attached at publish time.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[uint64]chan []byte
	nextID      atomic.Uint64
	queueSize   int
	log         zerolog.Logger
}

// New builds a Bus whose per-subscriber channels are buffered to queueSize.
func New(queueSize int, log zerolog.Logger) *Bus {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Bus{
		subscribers: make(map[string]map[uint64]chan []byte),
		queueSize:   queueSize,
		log:         log.With().Str("component", "pubsub").Logger(),
	}
}

// MeetingChannel returns the channel name for a meeting's pub/sub channel.
func MeetingChannel(meetingID string) string {
	return fmt.Sprintf("meeting:%s", meetingID)
}

// Subscribe registers a new subscriber on channel and returns a receive-only
// stream plus a cancel func that unsubscribes. The caller must call cancel
// exactly once when done.
func (b *Bus) Subscribe(channel string) (<-chan []byte, func()) {
	b.mu.Lock()
	subs, ok := b.subscribers[channel]
	if !ok {
		subs = make(map[uint64]chan []byte)
		b.subscribers[channel] = subs
	}
	id := b.nextID.Add(1)
	ch := make(chan []byte, b.queueSize)
	subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if subs, ok := b.subscribers[channel]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.subscribers, channel)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish is fire-and-forget: every subscriber currently attached to
// channel receives msg in publish order. A subscriber whose queue is full
// has its oldest pending message dropped to make room, rather than ever
// blocking the publisher.
func (b *Bus) Publish(channel string, msg []byte) {
	b.mu.RLock()
	subs := b.subscribers[channel]
	chans := make([]chan []byte, 0, len(subs))
	for _, ch := range subs {
		chans = append(chans, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- msg:
			default:
				b.log.Warn().Str("channel", channel).Msg("dropped message for slow subscriber")
			}
		}
	}
}

// SubscriberCount reports how many subscribers are currently attached to
// channel.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}

// TotalSubscribers reports how many subscribers are attached across every
// channel, and ActiveChannels how many distinct channels currently have at
// least one subscriber — together the WebSocket-fanout gauges the
// Prometheus collector reports at scrape time.
func (b *Bus) TotalSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, subs := range b.subscribers {
		total += len(subs)
	}
	return total
}

// ActiveChannels reports how many distinct meeting channels currently have
// at least one subscriber.
func (b *Bus) ActiveChannels() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
