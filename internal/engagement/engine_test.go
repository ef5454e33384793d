package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/database"
)

// fakeStore is an in-memory Store used only for these tests; it mirrors the
// unique-(participant,bucket) upsert semantics of the real repository.
type fakeStore struct {
	participants []database.Participant
	samples      []database.EngagementSample
	summary      *database.MeetingSummary
}

func (f *fakeStore) ListEngagementSamples(ctx context.Context, meetingID string, start, end *time.Time) ([]database.EngagementSample, error) {
	var out []database.EngagementSample
	for _, s := range f.samples {
		if s.MeetingID != meetingID {
			continue
		}
		if start != nil && s.Bucket.Before(*start) {
			continue
		}
		if end != nil && s.Bucket.After(*end) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ListParticipantsForMeeting(ctx context.Context, meetingID string) ([]database.Participant, error) {
	var out []database.Participant
	for _, p := range f.participants {
		if p.MeetingID == meetingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertEngagementSample(ctx context.Context, meetingID, participantID string, bucket time.Time, status database.ParticipantStatus) error {
	for i, s := range f.samples {
		if s.ParticipantID == participantID && s.Bucket.Equal(bucket) {
			f.samples[i].Status = status
			return nil
		}
	}
	f.samples = append(f.samples, database.EngagementSample{
		MeetingID: meetingID, ParticipantID: participantID, Bucket: bucket, Status: status,
	})
	return nil
}

func (f *fakeStore) UpdateParticipantLastStatus(ctx context.Context, participantID string, status database.ParticipantStatus, now time.Time) error {
	for i, p := range f.participants {
		if p.ID == participantID {
			f.participants[i].LastStatus = &status
			f.participants[i].LastSeenAt = &now
		}
	}
	return nil
}

func (f *fakeStore) MaxParticipantCount(ctx context.Context, meetingID string) (int, error) {
	n := 0
	for _, p := range f.participants {
		if p.MeetingID == meetingID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetMeetingSummary(ctx context.Context, meetingID string) (database.MeetingSummary, bool, error) {
	if f.summary != nil && f.summary.MeetingID == meetingID {
		return *f.summary, true, nil
	}
	return database.MeetingSummary{}, false, nil
}

func (f *fakeStore) UpsertMeetingSummary(ctx context.Context, s database.MeetingSummary) error {
	f.summary = &s
	return nil
}

func statusPtr(s database.ParticipantStatus) *database.ParticipantStatus { return &s }

func TestBucketRollupCarriesForwardLastKnownStatus(t *testing.T) {
	meetingID := "meeting-1"
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	meeting := database.Meeting{ID: meetingID, StartTS: start, EndTS: end}

	store := &fakeStore{
		participants: []database.Participant{
			{ID: "p1", MeetingID: meetingID, DeviceFP: "fp1"},
		},
	}
	engine := New(store, NewKalman())

	// No sample yet: last_status nil -> disengaged -> 0.
	r, err := engine.BucketRollup(context.Background(), meeting, start.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("BucketRollup: %v", err)
	}
	if r.Participants["p1"] != 0 {
		t.Errorf("expected 0 before any sample, got %v", r.Participants["p1"])
	}

	if _, err := engine.RecordSample(context.Background(), meeting, "p1", database.StatusEngaged, start.Add(10*time.Minute)); err != nil {
		t.Fatalf("RecordSample: %v", err)
	}

	r, err = engine.BucketRollup(context.Background(), meeting, start.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("BucketRollup: %v", err)
	}
	if r.Participants["p1"] != 100 {
		t.Errorf("expected last-known status to carry forward to 100, got %v", r.Participants["p1"])
	}
	if r.Overall != 100 {
		t.Errorf("expected overall 100, got %v", r.Overall)
	}
}

func TestRecordSampleRejectsOutOfBounds(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	meeting := database.Meeting{ID: "m1", StartTS: start, EndTS: end}

	store := &fakeStore{participants: []database.Participant{{ID: "p1", MeetingID: "m1"}}}
	engine := New(store, NoSmoothing{})

	if _, err := engine.RecordSample(context.Background(), meeting, "p1", database.StatusEngaged, start.Add(-time.Minute)); err == nil {
		t.Error("expected OutOfBounds error for a bucket before meeting start")
	}
	if _, err := engine.RecordSample(context.Background(), meeting, "p1", database.StatusEngaged, end.Add(time.Minute)); err == nil {
		t.Error("expected OutOfBounds error for a bucket after meeting end")
	}
}

func TestComputeSummaryIsIdempotent(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	meeting := database.Meeting{ID: "m1", StartTS: start, EndTS: end}

	store := &fakeStore{
		participants: []database.Participant{
			{ID: "p1", MeetingID: "m1", LastStatus: statusPtr(database.StatusEngaged)},
			{ID: "p2", MeetingID: "m1", LastStatus: statusPtr(database.StatusEngaged)},
			{ID: "p3", MeetingID: "m1", LastStatus: statusPtr(database.StatusEngaged)},
		},
	}
	engine := New(store, NoSmoothing{})

	s1, err := engine.ComputeSummary(context.Background(), meeting)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}
	if s1.MaxParticipants != 3 {
		t.Errorf("MaxParticipants = %d, want 3", s1.MaxParticipants)
	}
	if s1.EngagementLevel != database.LevelHigh {
		t.Errorf("EngagementLevel = %q, want high", s1.EngagementLevel)
	}

	s2, err := engine.ComputeSummary(context.Background(), meeting)
	if err != nil {
		t.Fatalf("ComputeSummary (second call): %v", err)
	}
	if s2.ComputedAt != s1.ComputedAt {
		t.Errorf("second call recomputed instead of reusing persisted summary")
	}
}
