// Package meetingsvc implements meeting discovery: slot computation,
// deterministic upsert, listing, and the active-meeting query the periodic
// broadcaster polls.
package meetingsvc

import (
	"context"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/apperr"
	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/metrics"
	"github.com/pulsemeet/meetingtracker/internal/teamsparse"
	"github.com/pulsemeet/meetingtracker/internal/timeutil"
)

// Store is the persistence surface the service needs.
type Store interface {
	GetOrCreateCity(ctx context.Context, name string) (database.City, error)
	GetOrCreateRoom(ctx context.Context, name, cityID string) (database.MeetingRoom, error)
	GetOrCreateTeamsMeeting(ctx context.Context, threadID, meetingID, inviteURL string) (database.MSTeamsMeeting, error)
	GetOrCreateMeeting(ctx context.Context, id string, start, end time.Time, cityID, roomID, teamsMeetingID *string) (database.Meeting, error)
	GetMeetingByID(ctx context.Context, id string) (database.Meeting, error)
	ListMeetings(ctx context.Context, page, size int) ([]database.Meeting, int, error)
	GetActiveMeetings(ctx context.Context, now time.Time) ([]database.Meeting, error)
}

// Service implements §4.D's ensure_meeting/list_meetings/get_active.
type Service struct {
	db Store
}

func New(db Store) *Service {
	return &Service{db: db}
}

const pageSize = 20

// Request is the inbound visit request.
type Request struct {
	MSTeamsInput    string
	CityID          string
	MeetingRoomID   string
	DurationMinutes int
}

// EnsureMeeting implements §4.D step-by-step: snap now to the nearest
// half-hour in its own location, derive end_ts, parse the Teams context,
// and upsert the deterministic meeting row.
func (s *Service) EnsureMeeting(ctx context.Context, now time.Time, req Request) (database.Meeting, error) {
	if req.DurationMinutes != 30 && req.DurationMinutes != 60 {
		return database.Meeting{}, apperr.New(apperr.KindInvalidContext, "duration_minutes must be 30 or 60")
	}

	startLocal := timeutil.SnapToHalfHourLocal(now)
	start := startLocal.UTC()
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)

	parsed := teamsparse.Parse(req.MSTeamsInput)
	if parsed.Empty() && req.MeetingRoomID == "" {
		return database.Meeting{}, apperr.New(apperr.KindInvalidContext, "request requires a Teams context or a meeting room")
	}

	var teamsMeetingID *string
	if !parsed.Empty() {
		tm, err := s.db.GetOrCreateTeamsMeeting(ctx, parsed.ThreadID, parsed.MeetingID, parsed.InviteURL)
		if err != nil {
			return database.Meeting{}, apperr.Internal(err)
		}
		teamsMeetingID = &tm.ID
	}

	var roomID *string
	if req.MeetingRoomID != "" {
		roomID = &req.MeetingRoomID
	}
	var cityID *string
	if req.CityID != "" {
		cityID = &req.CityID
	}

	teamsIDForHash := ""
	if teamsMeetingID != nil {
		teamsIDForHash = *teamsMeetingID
	}
	roomIDForHash := ""
	if roomID != nil {
		roomIDForHash = *roomID
	}

	id, err := timeutil.DeterministicMeetingID(start, teamsIDForHash, roomIDForHash)
	if err != nil {
		return database.Meeting{}, apperr.New(apperr.KindInvalidContext, err.Error())
	}

	meeting, err := s.db.GetOrCreateMeeting(ctx, id, start, end, cityID, roomID, teamsMeetingID)
	if err != nil {
		return database.Meeting{}, apperr.Internal(err)
	}
	metrics.MeetingsCreatedTotal.Inc()
	return meeting, nil
}

// GetByID fetches a meeting, translating a no-rows condition to NotFound.
func (s *Service) GetByID(ctx context.Context, id string) (database.Meeting, error) {
	m, err := s.db.GetMeetingByID(ctx, id)
	if err != nil {
		return database.Meeting{}, translateLookupErr(err)
	}
	return m, nil
}

// ListMeetings pages 20 per page, ordered newest-start first.
func (s *Service) ListMeetings(ctx context.Context, page int) ([]database.Meeting, int, error) {
	return s.db.ListMeetings(ctx, page, pageSize)
}

// GetActive is used by the periodic broadcaster.
func (s *Service) GetActive(ctx context.Context, now time.Time) ([]database.Meeting, error) {
	return s.db.GetActiveMeetings(ctx, now)
}

func translateLookupErr(err error) error {
	return apperr.Wrap(apperr.KindNotFound, "meeting not found", err)
}
