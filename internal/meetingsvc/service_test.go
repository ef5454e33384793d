package meetingsvc

import (
	"context"
	"testing"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/apperr"
	"github.com/pulsemeet/meetingtracker/internal/database"
)

type fakeStore struct {
	meetings map[string]database.Meeting
	teams    map[string]database.MSTeamsMeeting
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{meetings: map[string]database.Meeting{}, teams: map[string]database.MSTeamsMeeting{}}
}

func (f *fakeStore) GetOrCreateCity(ctx context.Context, name string) (database.City, error) {
	return database.City{ID: "city-" + name, Name: name}, nil
}

func (f *fakeStore) GetOrCreateRoom(ctx context.Context, name, cityID string) (database.MeetingRoom, error) {
	return database.MeetingRoom{ID: "room-" + name, Name: name, CityID: cityID}, nil
}

func (f *fakeStore) GetOrCreateTeamsMeeting(ctx context.Context, threadID, meetingID, inviteURL string) (database.MSTeamsMeeting, error) {
	key := threadID
	if key == "" {
		key = meetingID
	}
	if m, ok := f.teams[key]; ok {
		return m, nil
	}
	f.nextID++
	m := database.MSTeamsMeeting{ID: "teams-id"}
	f.teams[key] = m
	return m, nil
}

func (f *fakeStore) GetOrCreateMeeting(ctx context.Context, id string, start, end time.Time, cityID, roomID, teamsMeetingID *string) (database.Meeting, error) {
	if existing, ok := f.meetings[id]; ok {
		return existing, nil
	}
	m := database.Meeting{ID: id, StartTS: start, EndTS: end, CityID: cityID, MeetingRoomID: roomID, MSTeamsMeetingID: teamsMeetingID}
	f.meetings[id] = m
	return m, nil
}

func (f *fakeStore) GetMeetingByID(ctx context.Context, id string) (database.Meeting, error) {
	if m, ok := f.meetings[id]; ok {
		return m, nil
	}
	return database.Meeting{}, errNotFound{}
}

func (f *fakeStore) ListMeetings(ctx context.Context, page, size int) ([]database.Meeting, int, error) {
	var out []database.Meeting
	for _, m := range f.meetings {
		out = append(out, m)
	}
	return out, len(out), nil
}

func (f *fakeStore) GetActiveMeetings(ctx context.Context, now time.Time) ([]database.Meeting, error) {
	var out []database.Meeting
	for _, m := range f.meetings {
		if m.Active(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

func TestEnsureMeetingDeterministicAcrossCalls(t *testing.T) {
	svc := New(newFakeStore())
	now, _ := time.Parse(time.RFC3339, "2025-01-01T13:58:00Z")

	req := Request{MSTeamsInput: "https://teams.microsoft.com/meet/abc", DurationMinutes: 60}

	m1, err := svc.EnsureMeeting(context.Background(), now, req)
	if err != nil {
		t.Fatalf("EnsureMeeting: %v", err)
	}
	m2, err := svc.EnsureMeeting(context.Background(), now, req)
	if err != nil {
		t.Fatalf("EnsureMeeting (2nd): %v", err)
	}

	if m1.ID != m2.ID {
		t.Errorf("expected identical meeting id, got %q and %q", m1.ID, m2.ID)
	}
	if m1.StartTS.Format(time.RFC3339) != "2025-01-01T14:00:00Z" {
		t.Errorf("StartTS = %v, want 2025-01-01T14:00:00Z", m1.StartTS)
	}
	if m1.EndTS.Format(time.RFC3339) != "2025-01-01T15:00:00Z" {
		t.Errorf("EndTS = %v, want 2025-01-01T15:00:00Z", m1.EndTS)
	}
}

func TestEnsureMeetingHalfHourSnapping(t *testing.T) {
	svc := New(newFakeStore())
	req := Request{MSTeamsInput: "https://teams.microsoft.com/meet/abc", DurationMinutes: 30}

	tests := []struct {
		now  string
		want string
	}{
		{"2025-01-01T10:10:00Z", "2025-01-01T10:00:00Z"},
		{"2025-01-01T10:16:00Z", "2025-01-01T10:30:00Z"},
		{"2025-01-01T10:44:00Z", "2025-01-01T10:30:00Z"},
		{"2025-01-01T10:45:00Z", "2025-01-01T11:00:00Z"},
	}
	for _, tt := range tests {
		now, _ := time.Parse(time.RFC3339, tt.now)
		m, err := svc.EnsureMeeting(context.Background(), now, req)
		if err != nil {
			t.Fatalf("EnsureMeeting(%s): %v", tt.now, err)
		}
		if got := m.StartTS.Format(time.RFC3339); got != tt.want {
			t.Errorf("EnsureMeeting(%s).StartTS = %s, want %s", tt.now, got, tt.want)
		}
	}
}

func TestEnsureMeetingMissingContext(t *testing.T) {
	svc := New(newFakeStore())
	now := time.Now().UTC()

	_, err := svc.EnsureMeeting(context.Background(), now, Request{DurationMinutes: 30})
	if !apperr.Is(err, apperr.KindInvalidContext) {
		t.Errorf("expected InvalidContext error, got %v", err)
	}
}

func TestEnsureMeetingInvalidDuration(t *testing.T) {
	svc := New(newFakeStore())
	now := time.Now().UTC()

	_, err := svc.EnsureMeeting(context.Background(), now, Request{MeetingRoomID: "room-1", DurationMinutes: 45})
	if !apperr.Is(err, apperr.KindInvalidContext) {
		t.Errorf("expected InvalidContext error for bad duration, got %v", err)
	}
}

func TestEnsureMeetingRoomAlone(t *testing.T) {
	svc := New(newFakeStore())
	now := time.Now().UTC()

	m, err := svc.EnsureMeeting(context.Background(), now, Request{MeetingRoomID: "room-1", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("EnsureMeeting: %v", err)
	}
	if m.MeetingRoomID == nil || *m.MeetingRoomID != "room-1" {
		t.Errorf("expected room id room-1, got %v", m.MeetingRoomID)
	}
}
