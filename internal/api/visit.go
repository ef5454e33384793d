package api

import (
	"net/http"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/apperr"
	"github.com/pulsemeet/meetingtracker/internal/meetingsvc"
	"github.com/pulsemeet/meetingtracker/internal/timeutil"
)

type visitBody struct {
	MSTeamsInput    string `json:"ms_teams_input"`
	CityID          string `json:"city_id"`
	MeetingRoomID   string `json:"meeting_room_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

type visitResponse struct {
	MeetingID    string `json:"meeting_id"`
	MeetingStart string `json:"meeting_start"`
	MeetingEnd   string `json:"meeting_end"`
}

// VisitHandler serves POST /visit: find-or-create the meeting for the
// caller's current half-hour slot and context.
type VisitHandler struct {
	service *meetingsvc.Service
}

func NewVisitHandler(service *meetingsvc.Service) *VisitHandler {
	return &VisitHandler{service: service}
}

func (h *VisitHandler) Visit(w http.ResponseWriter, r *http.Request) {
	var body visitBody
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.DurationMinutes == 0 {
		body.DurationMinutes = 30
	}

	meeting, err := h.service.EnsureMeeting(r.Context(), time.Now(), meetingsvc.Request{
		MSTeamsInput:    body.MSTeamsInput,
		CityID:          body.CityID,
		MeetingRoomID:   body.MeetingRoomID,
		DurationMinutes: body.DurationMinutes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, visitResponse{
		MeetingID:    meeting.ID,
		MeetingStart: timeutil.ISOFormatUTC(meeting.StartTS),
		MeetingEnd:   timeutil.ISOFormatUTC(meeting.EndTS),
	})
}

// writeServiceError maps a typed apperr.Error to the right HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	if apperr.Is(err, apperr.KindInvalidContext) {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if apperr.Is(err, apperr.KindNotFound) {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal server error")
}
