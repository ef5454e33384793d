// Package wsapi implements the per-connection WebSocket lifecycle and the
// join/status/ping message protocol layered on top of it.
package wsapi

import "github.com/pulsemeet/meetingtracker/internal/engagement"

// inboundEnvelope is decoded first to read the type discriminator before
// the full shape is parsed.
type inboundEnvelope struct {
	Type string `json:"type"`
}

// JoinRequest is the {"type":"join", ...} inbound frame.
type JoinRequest struct {
	Fingerprint string `json:"fingerprint"`
}

// StatusRequest is the {"type":"status", ...} inbound frame.
type StatusRequest struct {
	Status string `json:"status"`
}

// PingRequest is the {"type":"ping", ...} inbound frame.
type PingRequest struct {
	ClientTime string `json:"client_time,omitempty"`
}

// joinedResponse answers a successful join with the joiner's full snapshot.
// Sent only to the joining client — never broadcast — to avoid O(N^2)
// fanout on busy meetings.
type joinedResponse struct {
	Type          string          `json:"type"`
	ParticipantID string          `json:"participant_id"`
	MeetingID     string          `json:"meeting_id"`
	Snapshot      snapshotPayload `json:"snapshot"`
}

type snapshotPayload struct {
	MeetingID    string                     `json:"meeting_id"`
	Start        string                     `json:"start"`
	End          string                     `json:"end"`
	BucketMins   int                        `json:"bucket_minutes"`
	Participants []participantSeriesPayload `json:"participants"`
	Overall      []float64                  `json:"overall"`
}

type participantSeriesPayload struct {
	ParticipantID string    `json:"participant_id"`
	Fingerprint   string    `json:"fingerprint"`
	Series        []float64 `json:"series"`
}

func newSnapshotPayload(s engagement.Snapshot) snapshotPayload {
	participants := make([]participantSeriesPayload, len(s.Participants))
	for i, p := range s.Participants {
		participants[i] = participantSeriesPayload{
			ParticipantID: p.ParticipantID,
			Fingerprint:   p.Fingerprint,
			Series:        p.Series,
		}
	}
	return snapshotPayload{
		MeetingID:    s.MeetingID,
		Start:        isoOrEmpty(s.Start),
		End:          isoOrEmpty(s.End),
		BucketMins:   s.BucketMins,
		Participants: participants,
		Overall:      s.Overall,
	}
}

type pongResponse struct {
	Type       string `json:"type"`
	ServerTime string `json:"server_time"`
}

type deltaResponse struct {
	Type string       `json:"type"`
	Data deltaPayload `json:"data"`
}

type deltaPayload struct {
	MeetingID    string             `json:"meeting_id"`
	Bucket       string             `json:"bucket"`
	Overall      float64            `json:"overall"`
	Participants map[string]float64 `json:"participants"`
}

func newDeltaResponse(r engagement.Rollup) deltaResponse {
	return deltaResponse{
		Type: "delta",
		Data: deltaPayload{
			MeetingID:    r.MeetingID,
			Bucket:       isoOrEmpty(r.Bucket),
			Overall:      r.Overall,
			Participants: r.Participants,
		},
	}
}

type meetingCountdownResponse struct {
	Type            string `json:"type"`
	MeetingID       string `json:"meeting_id"`
	StartTime       string `json:"start_time"`
	ServerTime      string `json:"server_time"`
	CityName        string `json:"city_name,omitempty"`
	MeetingRoomName string `json:"meeting_room_name,omitempty"`
}

type meetingStartedResponse struct {
	Type      string `json:"type"`
	MeetingID string `json:"meeting_id"`
}

type meetingEndedResponse struct {
	Type    string           `json:"type"`
	EndTime string           `json:"end_time"`
	Summary meetingEndedBody `json:"summary"`
}

type meetingEndedBody struct {
	Meeting              meetingMetadata `json:"meeting"`
	DurationMinutes      int             `json:"duration_minutes"`
	MaxParticipants      int             `json:"max_participants"`
	NormalizedEngagement float64         `json:"normalized_engagement"`
	EngagementLevel      string          `json:"engagement_level"`
}

type meetingMetadata struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type errorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorResponse(msg string) errorResponse {
	return errorResponse{Type: "error", Message: msg}
}
