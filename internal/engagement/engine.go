// Package engagement computes engagement time-series and rollups over the
// samples the persistence layer stores. It holds no state of its own — the
// database is the single source of truth. Snapshots and rollups are
// computed from repository reads; RecordSample and ComputeSummary also
// write through the repository.
package engagement

import (
	"context"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/timeutil"
)

// Store is the slice of repository operations the engine needs. *database.DB
// satisfies it; tests substitute a fake.
type Store interface {
	ListEngagementSamples(ctx context.Context, meetingID string, start, end *time.Time) ([]database.EngagementSample, error)
	ListParticipantsForMeeting(ctx context.Context, meetingID string) ([]database.Participant, error)
	UpsertEngagementSample(ctx context.Context, meetingID, participantID string, bucket time.Time, status database.ParticipantStatus) error
	UpdateParticipantLastStatus(ctx context.Context, participantID string, status database.ParticipantStatus, now time.Time) error
	MaxParticipantCount(ctx context.Context, meetingID string) (int, error)
	GetMeetingSummary(ctx context.Context, meetingID string) (database.MeetingSummary, bool, error)
	UpsertMeetingSummary(ctx context.Context, s database.MeetingSummary) error
}

// Engine builds snapshots and rollups for a meeting using a configured
// smoothing strategy.
type Engine struct {
	db       Store
	smoother Smoother
}

// New builds an Engine backed by store, using smoother for snapshot series.
func New(store Store, smoother Smoother) *Engine {
	return &Engine{db: store, smoother: smoother}
}

// flag projects a status to 1 (speaking or engaged) or 0 (anything else).
func flag(status database.ParticipantStatus) int {
	if status == database.StatusSpeaking || status == database.StatusEngaged {
		return 1
	}
	return 0
}

// ParticipantSeries is one participant's smoothed engagement percentage
// series within a Snapshot.
type ParticipantSeries struct {
	ParticipantID string
	Fingerprint   string
	Series        []float64
}

// Snapshot is the full time-series for a meeting from its start up to
// min(end, now), one smoothed series per participant plus the overall
// per-bucket mean.
type Snapshot struct {
	MeetingID    string
	Start        time.Time
	End          time.Time
	BucketMins   int
	Participants []ParticipantSeries
	Overall      []float64
}

// BuildSnapshot implements §4.E's build_summary: a flag array per
// participant carried forward from their last known status, smoothed, and
// averaged into an overall series.
func (e *Engine) BuildSnapshot(ctx context.Context, meeting database.Meeting, now time.Time, bucketMinutes int) (Snapshot, error) {
	if bucketMinutes <= 0 {
		bucketMinutes = 1
	}

	start := timeutil.Bucketize(meeting.StartTS)
	end := meeting.EndTS
	if now.Before(end) {
		end = now
	}
	end = timeutil.Bucketize(end)

	buckets := timeutil.GenerateBuckets(start, end, bucketMinutes)

	samples, err := e.db.ListEngagementSamples(ctx, meeting.ID, &start, &end)
	if err != nil {
		return Snapshot{}, err
	}
	byParticipant := make(map[string]map[int64]database.ParticipantStatus)
	for _, s := range samples {
		m, ok := byParticipant[s.ParticipantID]
		if !ok {
			m = make(map[int64]database.ParticipantStatus)
			byParticipant[s.ParticipantID] = m
		}
		m[s.Bucket.Unix()] = s.Status
	}

	participants, err := e.db.ListParticipantsForMeeting(ctx, meeting.ID)
	if err != nil {
		return Snapshot{}, err
	}

	series := make([]ParticipantSeries, 0, len(participants))
	overallSums := make([]float64, len(buckets))
	overallCounts := make([]int, len(buckets))

	for _, p := range participants {
		lastKnown := database.StatusDisengaged
		if p.LastStatus != nil {
			lastKnown = *p.LastStatus
		}

		flags := make([]int, len(buckets))
		bySample := byParticipant[p.ID]
		for i, b := range buckets {
			if status, ok := bySample[b.Unix()]; ok {
				lastKnown = status
			}
			flags[i] = flag(lastKnown)
		}

		smoothed := e.smoother.Smooth(flags, bucketMinutes)
		for i, v := range smoothed {
			overallSums[i] += v
			overallCounts[i]++
		}

		series = append(series, ParticipantSeries{
			ParticipantID: p.ID,
			Fingerprint:   p.DeviceFP,
			Series:        smoothed,
		})
	}

	overall := make([]float64, len(buckets))
	for i := range overall {
		if overallCounts[i] > 0 {
			overall[i] = overallSums[i] / float64(overallCounts[i])
		}
	}

	return Snapshot{
		MeetingID:    meeting.ID,
		Start:        start,
		End:          end,
		BucketMins:   bucketMinutes,
		Participants: series,
		Overall:      overall,
	}, nil
}

// Rollup is the per-bucket current-state summary for a meeting: each
// participant's last-known status as 0 or 100, plus the overall mean.
type Rollup struct {
	MeetingID    string
	Bucket       time.Time
	Participants map[string]float64
	Overall      float64
}

// BucketRollup implements §4.E's bucket_rollup: every current participant's
// last known status carried forward through samples up to and including
// bucket, without any smoothing. Used for incremental deltas.
func (e *Engine) BucketRollup(ctx context.Context, meeting database.Meeting, bucket time.Time) (Rollup, error) {
	bucket = timeutil.Bucketize(bucket)

	participants, err := e.db.ListParticipantsForMeeting(ctx, meeting.ID)
	if err != nil {
		return Rollup{}, err
	}

	latest := make(map[string]database.ParticipantStatus, len(participants))
	for _, p := range participants {
		if p.LastStatus != nil {
			latest[p.ID] = *p.LastStatus
		} else {
			latest[p.ID] = database.StatusDisengaged
		}
	}

	samples, err := e.db.ListEngagementSamples(ctx, meeting.ID, nil, &bucket)
	if err != nil {
		return Rollup{}, err
	}
	for _, s := range samples {
		if s.Bucket.After(bucket) {
			continue
		}
		latest[s.ParticipantID] = s.Status
	}

	result := make(map[string]float64, len(latest))
	var sum float64
	for pid, status := range latest {
		v := float64(flag(status)) * 100.0
		result[pid] = v
		sum += v
	}

	overall := 0.0
	if len(result) > 0 {
		overall = sum / float64(len(result))
	}

	return Rollup{
		MeetingID:    meeting.ID,
		Bucket:       bucket,
		Participants: result,
		Overall:      overall,
	}, nil
}
