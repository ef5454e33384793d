package database

import "time"

// City is a venue grouping for meeting rooms. Created on demand, never
// mutated, never destroyed.
type City struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// MeetingRoom is a physical room belonging to a City. Unique on
// (Name, CityID).
type MeetingRoom struct {
	ID        string
	Name      string
	CityID    string
	CreatedAt time.Time
}

// MSTeamsMeeting records the Microsoft Teams context for a meeting. At least
// one of ThreadID, MeetingID, InviteURL is non-null. Deduplicated by
// ThreadID, then MeetingID.
type MSTeamsMeeting struct {
	ID        string
	ThreadID  *string
	MeetingID *string
	InviteURL *string
	CreatedAt time.Time
}

// Meeting is a single time-slotted meeting instance, identified by a
// deterministic 36-character hex id derived from its start time and
// context (see timeutil.DeterministicMeetingID).
type Meeting struct {
	ID               string
	StartTS          time.Time
	EndTS            time.Time
	CityID           *string
	MeetingRoomID    *string
	MSTeamsMeetingID *string
	CreatedAt        time.Time
}

// Active reports whether the meeting is in progress at now.
func (m Meeting) Active(now time.Time) bool {
	return !now.Before(m.StartTS) && now.Before(m.EndTS)
}

// ParticipantStatus is the engagement state a participant last reported.
type ParticipantStatus string

const (
	StatusSpeaking   ParticipantStatus = "speaking"
	StatusEngaged    ParticipantStatus = "engaged"
	StatusDisengaged ParticipantStatus = "disengaged"
)

// Participant is a single attendee of a Meeting, keyed by device fingerprint
// so that a reconnect from the same device reuses the row.
type Participant struct {
	ID         string
	MeetingID  string
	DeviceFP   string
	LastStatus *ParticipantStatus
	LastSeenAt *time.Time
	CreatedAt  time.Time
}

// EngagementSample is one minute-bucketed engagement reading. Unique on
// (ParticipantID, Bucket); upserts are last-write-wins.
type EngagementSample struct {
	ID            int64
	MeetingID     string
	ParticipantID string
	Bucket        time.Time
	Status        ParticipantStatus
	CreatedAt     time.Time
}

// EngagementLevel classifies a meeting's normalized engagement score.
type EngagementLevel string

const (
	LevelHigh    EngagementLevel = "high"
	LevelHealthy EngagementLevel = "healthy"
	LevelPassive EngagementLevel = "passive"
	LevelLow     EngagementLevel = "low"
)

// MeetingSummary is the single end-of-meeting record, created exactly once
// by whichever watcher first observes the meeting has ended.
type MeetingSummary struct {
	MeetingID            string
	MaxParticipants      int
	NormalizedEngagement float64
	EngagementLevel      EngagementLevel
	ComputedAt           time.Time
}
