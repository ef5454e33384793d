package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsemeet/meetingtracker/internal/apperr"
	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/timeutil"
)

// MeetingStore is the listing surface the handler needs, beyond the
// meetingsvc.Service methods already used by VisitHandler.
type MeetingStore interface {
	GetByID(ctx context.Context, id string) (database.Meeting, error)
	ListMeetings(ctx context.Context, page int) ([]database.Meeting, int, error)
}

// ParticipantLister supplies the eager-loaded participant list for a single
// meeting's detail view (SPEC_FULL.md supplemented feature #1).
type ParticipantLister interface {
	ListParticipantsForMeeting(ctx context.Context, meetingID string) ([]database.Participant, error)
}

// MeetingsHandler serves GET /meetings and GET /meetings/{id}.
type MeetingsHandler struct {
	meetings     MeetingStore
	participants ParticipantLister
	names        NameResolver
}

// NameResolver resolves the city/room names embedded in a meeting's detail
// view; *database.DB satisfies it.
type NameResolver interface {
	GetCity(ctx context.Context, id string) (database.City, error)
	GetRoom(ctx context.Context, id string) (database.MeetingRoom, error)
}

func NewMeetingsHandler(meetings MeetingStore, participants ParticipantLister, names NameResolver) *MeetingsHandler {
	return &MeetingsHandler{meetings: meetings, participants: participants, names: names}
}

type meetingListResponse struct {
	Items []meetingSummaryJSON `json:"items"`
	Page  int                  `json:"page"`
	Size  int                  `json:"size"`
	Total int                  `json:"total"`
}

type meetingSummaryJSON struct {
	ID            string  `json:"id"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	CityID        *string `json:"city_id,omitempty"`
	MeetingRoomID *string `json:"meeting_room_id,omitempty"`
	TeamsID       *string `json:"ms_teams_meeting_id,omitempty"`
}

const listPageSize = 20

func newMeetingSummaryJSON(m database.Meeting) meetingSummaryJSON {
	return meetingSummaryJSON{
		ID:            m.ID,
		Start:         timeutil.ISOFormatUTC(m.StartTS),
		End:           timeutil.ISOFormatUTC(m.EndTS),
		CityID:        m.CityID,
		MeetingRoomID: m.MeetingRoomID,
		TeamsID:       m.MSTeamsMeetingID,
	}
}

// List serves GET /meetings, paginated 20 per page and ordered newest-first.
func (h *MeetingsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePage(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	meetings, total, err := h.meetings.ListMeetings(r.Context(), page)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]meetingSummaryJSON, len(meetings))
	for i, m := range meetings {
		items[i] = newMeetingSummaryJSON(m)
	}

	WriteJSON(w, http.StatusOK, meetingListResponse{
		Items: items,
		Page:  page,
		Size:  listPageSize,
		Total: total,
	})
}

type meetingDetailResponse struct {
	meetingSummaryJSON
	CityName        string             `json:"city_name,omitempty"`
	MeetingRoomName string             `json:"meeting_room_name,omitempty"`
	Participants    []participantJSON  `json:"participants"`
}

type participantJSON struct {
	ID          string  `json:"id"`
	Fingerprint string  `json:"device_fingerprint"`
	LastStatus  *string `json:"last_status,omitempty"`
	LastSeenAt  *string `json:"last_seen_at,omitempty"`
}

// Get serves GET /meetings/{id}: the meeting plus its eager-loaded city/room
// name and full participant list.
func (h *MeetingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	meeting, err := h.meetings.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, apperr.Wrap(apperr.KindNotFound, "meeting not found", err))
		return
	}

	resp := meetingDetailResponse{meetingSummaryJSON: newMeetingSummaryJSON(meeting)}

	if meeting.CityID != nil {
		if city, err := h.names.GetCity(r.Context(), *meeting.CityID); err == nil {
			resp.CityName = city.Name
		}
	}
	if meeting.MeetingRoomID != nil {
		if room, err := h.names.GetRoom(r.Context(), *meeting.MeetingRoomID); err == nil {
			resp.MeetingRoomName = room.Name
		}
	}

	participants, err := h.participants.ListParticipantsForMeeting(r.Context(), meeting.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	resp.Participants = make([]participantJSON, len(participants))
	for i, p := range participants {
		pj := participantJSON{ID: p.ID, Fingerprint: p.DeviceFP}
		if p.LastStatus != nil {
			s := string(*p.LastStatus)
			pj.LastStatus = &s
		}
		if p.LastSeenAt != nil {
			s := timeutil.ISOFormatUTC(*p.LastSeenAt)
			pj.LastSeenAt = &s
		}
		resp.Participants[i] = pj
	}

	WriteJSON(w, http.StatusOK, resp)
}
