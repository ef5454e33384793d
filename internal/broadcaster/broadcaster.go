// Package broadcaster runs the periodic background task (§4.J): on a fixed
// cadence it publishes a rollup delta for every active meeting and, the
// first time it observes a meeting has started, a one-off meeting_started
// notification for clients still waiting in a countdown.
package broadcaster

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/engagement"
	"github.com/pulsemeet/meetingtracker/internal/metrics"
	"github.com/pulsemeet/meetingtracker/internal/pubsub"
	"github.com/pulsemeet/meetingtracker/internal/timeutil"
)

// ActiveMeetingLister is the subset of meetingsvc.Service the broadcaster
// polls each tick.
type ActiveMeetingLister interface {
	GetActive(ctx context.Context, now time.Time) ([]database.Meeting, error)
}

type meetingStartedMessage struct {
	Type      string `json:"type"`
	MeetingID string `json:"meeting_id"`
}

type deltaMessage struct {
	Type string    `json:"type"`
	Data deltaBody `json:"data"`
}

type deltaBody struct {
	MeetingID    string             `json:"meeting_id"`
	Bucket       string             `json:"bucket"`
	Overall      float64            `json:"overall"`
	Participants map[string]float64 `json:"participants"`
}

// Broadcaster owns the single process-local notified_started set and the
// ticker loop that drives it.
type Broadcaster struct {
	meetings ActiveMeetingLister
	engine   *engagement.Engine
	bus      *pubsub.Bus
	interval time.Duration
	log      zerolog.Logger

	mu              sync.Mutex
	notifiedStarted map[string]bool

	lastTick    atomic.Int64 // unix nanos, for health check liveness
	activeCount atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
}

// ActiveMeetingCount reports how many meetings the most recent tick saw as
// active, for the metrics collector's gauge.
func (b *Broadcaster) ActiveMeetingCount() int {
	return int(b.activeCount.Load())
}

// LastTick reports when the loop last completed an iteration, satisfying
// api.BroadcasterLiveness for the health endpoint.
func (b *Broadcaster) LastTick() time.Time {
	nanos := b.lastTick.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func New(meetings ActiveMeetingLister, engine *engagement.Engine, bus *pubsub.Bus, interval time.Duration, log zerolog.Logger) *Broadcaster {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Broadcaster{
		meetings:        meetings,
		engine:          engine,
		bus:             bus,
		interval:        interval,
		log:             log.With().Str("component", "broadcaster").Logger(),
		notifiedStarted: make(map[string]bool),
	}
}

// Start launches the ticker loop in its own goroutine. Stop cancels it and
// waits for the loop to exit.
func (b *Broadcaster) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.loop(ctx)
}

func (b *Broadcaster) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.done != nil {
		<-b.done
	}
}

func (b *Broadcaster) loop(ctx context.Context) {
	defer close(b.done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

func (b *Broadcaster) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		b.lastTick.Store(time.Now().UnixNano())
		metrics.BroadcasterTickDuration.Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC()
	active, err := b.meetings.GetActive(ctx, now)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to load active meetings")
		return
	}
	b.activeCount.Store(int64(len(active)))

	for _, m := range active {
		if err := b.tickMeeting(ctx, m, now); err != nil {
			b.log.Error().Err(err).Str("meeting_id", m.ID).Msg("broadcast tick failed for meeting")
		}
	}
}

func (b *Broadcaster) tickMeeting(ctx context.Context, m database.Meeting, now time.Time) error {
	if !b.hasNotifiedStarted(m.ID) && !now.Before(m.StartTS) {
		b.markNotifiedStarted(m.ID)
		payload, err := json.Marshal(meetingStartedMessage{Type: "meeting_started", MeetingID: m.ID})
		if err == nil {
			b.bus.Publish(pubsub.MeetingChannel(m.ID), payload)
		}
	}

	bucket := timeutil.Bucketize(now)
	rollup, err := b.engine.BucketRollup(ctx, m, bucket)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(deltaMessage{
		Type: "delta",
		Data: deltaBody{
			MeetingID:    rollup.MeetingID,
			Bucket:       timeutil.ISOFormatUTC(rollup.Bucket),
			Overall:      rollup.Overall,
			Participants: rollup.Participants,
		},
	})
	if err != nil {
		return err
	}
	b.bus.Publish(pubsub.MeetingChannel(m.ID), payload)
	metrics.DeltasPublishedTotal.Inc()
	return nil
}

func (b *Broadcaster) hasNotifiedStarted(meetingID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notifiedStarted[meetingID]
}

func (b *Broadcaster) markNotifiedStarted(meetingID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifiedStarted[meetingID] = true
}
