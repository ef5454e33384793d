package engagement

import (
	"context"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/apperr"
	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/timeutil"
)

// RecordSample upserts a status at bucketize(at) for participantID within
// meeting, rejecting any bucket outside the meeting's [start_ts, end_ts]
// window.
func (e *Engine) RecordSample(ctx context.Context, meeting database.Meeting, participantID string, status database.ParticipantStatus, at time.Time) (time.Time, error) {
	bucket := timeutil.Bucketize(at)
	if bucket.Before(meeting.StartTS) || bucket.After(meeting.EndTS) {
		return bucket, apperr.New(apperr.KindOutOfBounds, "status bucket outside meeting bounds")
	}

	if err := e.db.UpsertEngagementSample(ctx, meeting.ID, participantID, bucket, status); err != nil {
		return bucket, apperr.Internal(err)
	}
	if err := e.db.UpdateParticipantLastStatus(ctx, participantID, status, at); err != nil {
		return bucket, apperr.Internal(err)
	}
	return bucket, nil
}
