package wsapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/apperr"
	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/engagement"
	"github.com/pulsemeet/meetingtracker/internal/pubsub"
	"github.com/pulsemeet/meetingtracker/internal/timeutil"
)

// ParticipantStore is the participant-side persistence surface the services
// need; *database.DB satisfies it.
type ParticipantStore interface {
	FindParticipantByFingerprint(ctx context.Context, meetingID, fingerprint string) (database.Participant, bool, error)
	CreateParticipant(ctx context.Context, meetingID, fingerprint string) (database.Participant, error)
	TouchParticipant(ctx context.Context, participantID string, now time.Time) error
}

// Services implements §4.H's Join/Status/Ping/Leave. Each returns a single
// optional outbound response and may additionally publish to the meeting's
// channel.
type Services struct {
	db     ParticipantStore
	engine *engagement.Engine
	bus    *pubsub.Bus
}

func NewServices(db ParticipantStore, engine *engagement.Engine, bus *pubsub.Bus) *Services {
	return &Services{db: db, engine: engine, bus: bus}
}

// Join finds-or-creates the participant by fingerprint, commits immediately,
// computes the full snapshot, publishes a delta so other subscribers see the
// new joiner, and responds to the joining client alone with the snapshot.
func (s *Services) Join(ctx context.Context, meeting database.Meeting, fingerprint string, now time.Time) (string, any, error) {
	if fingerprint == "" {
		return "", nil, apperr.New(apperr.KindProtocol, "join requires a non-empty fingerprint")
	}

	participant, ok, err := s.db.FindParticipantByFingerprint(ctx, meeting.ID, fingerprint)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	if !ok {
		participant, err = s.db.CreateParticipant(ctx, meeting.ID, fingerprint)
		if err != nil {
			return "", nil, apperr.Internal(err)
		}
	}
	if err := s.db.TouchParticipant(ctx, participant.ID, now); err != nil {
		return "", nil, apperr.Internal(err)
	}

	snapshot, err := s.engine.BuildSnapshot(ctx, meeting, now, 1)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}

	bucket := timeutil.Bucketize(now)
	rollup, err := s.engine.BucketRollup(ctx, meeting, bucket)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	s.publishDelta(meeting.ID, rollup)

	resp := joinedResponse{
		Type:          "joined",
		ParticipantID: participant.ID,
		MeetingID:     meeting.ID,
		Snapshot:      newSnapshotPayload(snapshot),
	}
	return participant.ID, resp, nil
}

// Status upserts the reported status at bucketize(now), updates last_status,
// publishes a rollup delta, and never responds directly to the caller.
func (s *Services) Status(ctx context.Context, meeting database.Meeting, participantID string, status database.ParticipantStatus, now time.Time) (any, error) {
	bucket, err := s.engine.RecordSample(ctx, meeting, participantID, status, now)
	if err != nil {
		return nil, err
	}

	rollup, err := s.engine.BucketRollup(ctx, meeting, bucket)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.publishDelta(meeting.ID, rollup)
	return nil, nil
}

// Ping answers with the server's current time and touches last_seen_at.
func (s *Services) Ping(ctx context.Context, participantID string, now time.Time) (any, error) {
	if participantID != "" {
		if err := s.db.TouchParticipant(ctx, participantID, now); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	return pongResponse{Type: "pong", ServerTime: timeutil.ISOFormatUTC(now)}, nil
}

// Leave is invoked by the lifecycle on disconnect for a joined participant:
// touch last_seen_at and publish a final rollup delta.
func (s *Services) Leave(ctx context.Context, meeting database.Meeting, participantID string, now time.Time) error {
	if err := s.db.TouchParticipant(ctx, participantID, now); err != nil {
		return apperr.Internal(err)
	}
	rollup, err := s.engine.BucketRollup(ctx, meeting, timeutil.Bucketize(now))
	if err != nil {
		return apperr.Internal(err)
	}
	s.publishDelta(meeting.ID, rollup)
	return nil
}

func (s *Services) publishDelta(meetingID string, rollup engagement.Rollup) {
	payload, err := json.Marshal(newDeltaResponse(rollup))
	if err != nil {
		return
	}
	s.bus.Publish(pubsub.MeetingChannel(meetingID), payload)
}
