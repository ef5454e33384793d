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

func newTestServices(t *testing.T) (*Services, *pubsub.Bus, database.Meeting) {
	t.Helper()
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	meeting := database.Meeting{ID: "m1", StartTS: start, EndTS: end}

	bus := pubsub.New(8, zerolog.Nop())
	engine := engagement.New(&fakeEngineStore{}, engagement.NoSmoothing{})
	services := NewServices(newFakeParticipantStore(), engine, bus)
	return services, bus, meeting
}

func TestServicesJoinReusesRowOnReconnect(t *testing.T) {
	services, bus, meeting := newTestServices(t)
	now := meeting.StartTS.Add(time.Minute)

	ch, cancel := bus.Subscribe(pubsub.MeetingChannel(meeting.ID))
	defer cancel()

	pid1, resp, err := services.Join(context.Background(), meeting, "fp-A", now)
	require.NoError(t, err)
	require.NotEmpty(t, pid1)
	joined, ok := resp.(joinedResponse)
	require.True(t, ok)
	require.Equal(t, pid1, joined.ParticipantID)
	require.Equal(t, meeting.ID, joined.MeetingID)

	select {
	case msg := <-ch:
		var env map[string]any
		require.NoError(t, json.Unmarshal(msg, &env))
		require.Equal(t, "delta", env["type"])
	case <-time.After(time.Second):
		t.Fatal("expected a delta to be published on join")
	}

	// Reconnect with the same fingerprint: same participant id, no new row.
	pid2, _, err := services.Join(context.Background(), meeting, "fp-A", now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, pid1, pid2)
}

func TestServicesJoinRejectsEmptyFingerprint(t *testing.T) {
	services, _, meeting := newTestServices(t)
	_, _, err := services.Join(context.Background(), meeting, "", meeting.StartTS.Add(time.Minute))
	require.Error(t, err)
}

func TestServicesStatusPublishesDeltaAndRespondsEmpty(t *testing.T) {
	services, bus, meeting := newTestServices(t)
	now := meeting.StartTS.Add(5 * time.Minute)

	pid, _, err := services.Join(context.Background(), meeting, "fp-A", now)
	require.NoError(t, err)

	ch, cancel := bus.Subscribe(pubsub.MeetingChannel(meeting.ID))
	defer cancel()

	resp, err := services.Status(context.Background(), meeting, pid, database.StatusSpeaking, now)
	require.NoError(t, err)
	require.Nil(t, resp, "Status never responds directly to the caller")

	select {
	case msg := <-ch:
		var env map[string]any
		require.NoError(t, json.Unmarshal(msg, &env))
		require.Equal(t, "delta", env["type"])
		data := env["data"].(map[string]any)
		participants := data["participants"].(map[string]any)
		require.Equal(t, 100.0, participants[pid])
	case <-time.After(time.Second):
		t.Fatal("expected a delta to be published on status")
	}
}

func TestServicesPingTouchesParticipantWhenJoined(t *testing.T) {
	services, _, _ := newTestServices(t)
	store := services.db.(*fakeParticipantStore)
	now := time.Date(2025, 1, 1, 10, 5, 0, 0, time.UTC)

	resp, err := services.Ping(context.Background(), "", now)
	require.NoError(t, err)
	pong, ok := resp.(pongResponse)
	require.True(t, ok)
	require.Equal(t, "pong", pong.Type)
	require.Empty(t, store.touched, "ping without a joined participant touches nothing")

	resp, err = services.Ping(context.Background(), "p1", now)
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, []string{"p1"}, store.touched)
}

func TestServicesLeavePublishesFinalRollup(t *testing.T) {
	services, bus, meeting := newTestServices(t)
	now := meeting.StartTS.Add(10 * time.Minute)

	pid, _, err := services.Join(context.Background(), meeting, "fp-A", now)
	require.NoError(t, err)
	_, err = services.Status(context.Background(), meeting, pid, database.StatusEngaged, now)
	require.NoError(t, err)

	ch, cancel := bus.Subscribe(pubsub.MeetingChannel(meeting.ID))
	defer cancel()

	require.NoError(t, services.Leave(context.Background(), meeting, pid, now.Add(time.Minute)))

	select {
	case msg := <-ch:
		var env map[string]any
		require.NoError(t, json.Unmarshal(msg, &env))
		require.Equal(t, "delta", env["type"])
	case <-time.After(time.Second):
		t.Fatal("expected a delta to be published on leave")
	}
}
