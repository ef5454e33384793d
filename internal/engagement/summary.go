package engagement

import (
	"context"
	"math"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/metrics"
)

const normalizationAlpha = 0.8

// Normalize applies the size-aware boost: a small meeting's raw average
// engagement is boosted more than a large one's, capped so the boost never
// more than offsets for group-size dilution and never exceeds 1.0.
func Normalize(raw float64, maxParticipants int) float64 {
	boost := 1 + normalizationAlpha/math.Log2(float64(maxParticipants)+1)
	return math.Min(math.Min(raw*boost, raw+0.25), 1.0)
}

// Classify buckets a normalized engagement score into its level.
func Classify(normalized float64) database.EngagementLevel {
	switch {
	case normalized >= 0.60:
		return database.LevelHigh
	case normalized >= 0.40:
		return database.LevelHealthy
	case normalized >= 0.20:
		return database.LevelPassive
	default:
		return database.LevelLow
	}
}

// ComputeSummary implements §4.K: reuse a persisted summary if one already
// exists (idempotent for repeat watchers), otherwise compute one from the
// meeting's full snapshot and persist it.
func (e *Engine) ComputeSummary(ctx context.Context, meeting database.Meeting) (database.MeetingSummary, error) {
	if existing, ok, err := e.db.GetMeetingSummary(ctx, meeting.ID); err != nil {
		return database.MeetingSummary{}, err
	} else if ok {
		return existing, nil
	}

	maxParticipants, err := e.db.MaxParticipantCount(ctx, meeting.ID)
	if err != nil {
		return database.MeetingSummary{}, err
	}

	snapshot, err := e.BuildSnapshot(ctx, meeting, meeting.EndTS, 1)
	if err != nil {
		return database.MeetingSummary{}, err
	}

	raw := averageOverall(snapshot.Overall) / 100.0
	normalized := raw
	if maxParticipants > 0 {
		normalized = Normalize(raw, maxParticipants)
	}

	summary := database.MeetingSummary{
		MeetingID:            meeting.ID,
		MaxParticipants:      maxParticipants,
		NormalizedEngagement: normalized,
		EngagementLevel:      Classify(normalized),
		ComputedAt:           time.Now().UTC(),
	}

	if err := e.db.UpsertMeetingSummary(ctx, summary); err != nil {
		return database.MeetingSummary{}, err
	}
	metrics.MeetingsEndedTotal.Inc()
	return summary, nil
}

func averageOverall(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}
