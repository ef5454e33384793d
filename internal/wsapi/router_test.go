package wsapi

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

type fakeParticipantStore struct {
	byFingerprint map[string]database.Participant
	nextID        int
	touched       []string
}

func newFakeParticipantStore() *fakeParticipantStore {
	return &fakeParticipantStore{byFingerprint: map[string]database.Participant{}}
}

func (f *fakeParticipantStore) FindParticipantByFingerprint(ctx context.Context, meetingID, fingerprint string) (database.Participant, bool, error) {
	p, ok := f.byFingerprint[meetingID+"|"+fingerprint]
	return p, ok, nil
}

func (f *fakeParticipantStore) CreateParticipant(ctx context.Context, meetingID, fingerprint string) (database.Participant, error) {
	f.nextID++
	p := database.Participant{ID: "p" + itoaTest(f.nextID), MeetingID: meetingID, DeviceFP: fingerprint}
	f.byFingerprint[meetingID+"|"+fingerprint] = p
	return p, nil
}

func (f *fakeParticipantStore) TouchParticipant(ctx context.Context, participantID string, now time.Time) error {
	f.touched = append(f.touched, participantID)
	return nil
}

func itoaTest(n int) string {
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if len(digits) == 0 {
		return "0"
	}
	return string(digits)
}

// fakeEngineStore mirrors engagement.Store for wsapi-level tests.
type fakeEngineStore struct {
	participants []database.Participant
	samples      []database.EngagementSample
}

func (f *fakeEngineStore) ListEngagementSamples(ctx context.Context, meetingID string, start, end *time.Time) ([]database.EngagementSample, error) {
	return f.samples, nil
}
func (f *fakeEngineStore) ListParticipantsForMeeting(ctx context.Context, meetingID string) ([]database.Participant, error) {
	return f.participants, nil
}
func (f *fakeEngineStore) UpsertEngagementSample(ctx context.Context, meetingID, participantID string, bucket time.Time, status database.ParticipantStatus) error {
	f.samples = append(f.samples, database.EngagementSample{MeetingID: meetingID, ParticipantID: participantID, Bucket: bucket, Status: status})
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

func newTestRouter() (*Router, database.Meeting) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	meeting := database.Meeting{ID: "m1", StartTS: start, EndTS: end}

	engine := engagement.New(&fakeEngineStore{}, engagement.NoSmoothing{})
	bus := pubsub.New(8, zerolog.Nop())
	services := NewServices(newFakeParticipantStore(), engine, bus)
	return NewRouter(services), meeting
}

func TestRouteJoinThenStatusRequiresJoinFirst(t *testing.T) {
	router, meeting := newTestRouter()
	state := &ConnState{Meeting: meeting}
	now := meeting.StartTS.Add(time.Minute)

	statusMsg, _ := json.Marshal(map[string]string{"type": "status", "status": "engaged"})
	_, err := router.Route(context.Background(), statusMsg, state, now)
	require.Error(t, err, "status before join should fail")

	joinMsg, _ := json.Marshal(map[string]string{"type": "join", "fingerprint": "fp-1"})
	resp, err := router.Route(context.Background(), joinMsg, state, now)
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.True(t, state.joined())

	// Joining twice should fail (state error).
	_, err = router.Route(context.Background(), joinMsg, state, now)
	require.Error(t, err)

	_, err = router.Route(context.Background(), statusMsg, state, now)
	require.NoError(t, err)
}

func TestRouteInvalidJSON(t *testing.T) {
	router, meeting := newTestRouter()
	state := &ConnState{Meeting: meeting}

	_, err := router.Route(context.Background(), []byte("not json"), state, time.Now())
	require.Error(t, err)
}

func TestRouteUnknownType(t *testing.T) {
	router, meeting := newTestRouter()
	state := &ConnState{Meeting: meeting}

	msg, _ := json.Marshal(map[string]string{"type": "bogus"})
	_, err := router.Route(context.Background(), msg, state, meeting.StartTS.Add(time.Minute))
	require.Error(t, err)
}

func TestRoutePingAlwaysPassesBeforeStart(t *testing.T) {
	router, meeting := newTestRouter()
	state := &ConnState{Meeting: meeting}

	msg, _ := json.Marshal(map[string]string{"type": "ping"})
	resp, err := router.Route(context.Background(), msg, state, meeting.StartTS.Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, resp)
}

func TestRouteJoinBeforeStartFails(t *testing.T) {
	router, meeting := newTestRouter()
	state := &ConnState{Meeting: meeting}

	msg, _ := json.Marshal(map[string]string{"type": "join", "fingerprint": "fp-1"})
	_, err := router.Route(context.Background(), msg, state, meeting.StartTS.Add(-time.Hour))
	require.Error(t, err)
}

func TestRouteStatusAfterEndFails(t *testing.T) {
	router, meeting := newTestRouter()
	state := &ConnState{Meeting: meeting, ParticipantID: "p1"}

	msg, _ := json.Marshal(map[string]string{"type": "status", "status": "engaged"})
	_, err := router.Route(context.Background(), msg, state, meeting.EndTS.Add(time.Minute))
	require.Error(t, err)
}
