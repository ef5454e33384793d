package broadcaster

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/engagement"
	"github.com/pulsemeet/meetingtracker/internal/pubsub"
)

type fakeLister struct {
	meetings []database.Meeting
}

func (f *fakeLister) GetActive(ctx context.Context, now time.Time) ([]database.Meeting, error) {
	return f.meetings, nil
}

type fakeEngineStore struct {
	participants []database.Participant
}

func (f *fakeEngineStore) ListEngagementSamples(ctx context.Context, meetingID string, start, end *time.Time) ([]database.EngagementSample, error) {
	return nil, nil
}
func (f *fakeEngineStore) ListParticipantsForMeeting(ctx context.Context, meetingID string) ([]database.Participant, error) {
	return f.participants, nil
}
func (f *fakeEngineStore) UpsertEngagementSample(ctx context.Context, meetingID, participantID string, bucket time.Time, status database.ParticipantStatus) error {
	return nil
}
func (f *fakeEngineStore) UpdateParticipantLastStatus(ctx context.Context, participantID string, status database.ParticipantStatus, now time.Time) error {
	return nil
}
func (f *fakeEngineStore) MaxParticipantCount(ctx context.Context, meetingID string) (int, error) {
	return len(f.participants), nil
}
func (f *fakeEngineStore) GetMeetingSummary(ctx context.Context, meetingID string) (database.MeetingSummary, bool, error) {
	return database.MeetingSummary{}, false, nil
}
func (f *fakeEngineStore) UpsertMeetingSummary(ctx context.Context, s database.MeetingSummary) error {
	return nil
}

func TestTickPublishesMeetingStartedOnce(t *testing.T) {
	start := time.Now().UTC().Add(-time.Minute)
	end := start.Add(30 * time.Minute)
	meeting := database.Meeting{ID: "m1", StartTS: start, EndTS: end}

	lister := &fakeLister{meetings: []database.Meeting{meeting}}
	engine := engagement.New(&fakeEngineStore{}, engagement.NoSmoothing{})
	bus := pubsub.New(8, zerolog.Nop())

	sub, cancel := bus.Subscribe(pubsub.MeetingChannel(meeting.ID))
	defer cancel()

	b := New(lister, engine, bus, time.Second, zerolog.Nop())

	ctx := context.Background()
	b.tick(ctx)
	b.tick(ctx)

	var startedCount, deltaCount int
	for i := 0; i < 4; i++ {
		select {
		case msg := <-sub:
			var env struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(msg, &env))
			switch env.Type {
			case "meeting_started":
				startedCount++
			case "delta":
				deltaCount++
			}
		case <-time.After(100 * time.Millisecond):
		}
	}

	require.Equal(t, 1, startedCount, "meeting_started should only be published once per meeting")
	require.Equal(t, 2, deltaCount, "a delta should be published on every tick")
}

func TestTickSkipsNotStartedMeeting(t *testing.T) {
	start := time.Now().UTC().Add(time.Hour)
	end := start.Add(30 * time.Minute)
	meeting := database.Meeting{ID: "m2", StartTS: start, EndTS: end}

	lister := &fakeLister{meetings: []database.Meeting{meeting}}
	engine := engagement.New(&fakeEngineStore{}, engagement.NoSmoothing{})
	bus := pubsub.New(8, zerolog.Nop())

	sub, cancel := bus.Subscribe(pubsub.MeetingChannel(meeting.ID))
	defer cancel()

	b := New(lister, engine, bus, time.Second, zerolog.Nop())
	b.tick(context.Background())

	select {
	case msg := <-sub:
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(msg, &env))
		require.Equal(t, "delta", env.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected a delta even for a not-yet-started meeting")
	}
}

func TestStartStopIsClean(t *testing.T) {
	lister := &fakeLister{}
	engine := engagement.New(&fakeEngineStore{}, engagement.NoSmoothing{})
	bus := pubsub.New(8, zerolog.Nop())

	b := New(lister, engine, bus, 10*time.Millisecond, zerolog.Nop())
	b.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	b.Stop()
}
