package wsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulsemeet/meetingtracker/internal/apperr"
	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/metrics"
)

// ConnState is the per-connection mutable state the router consults for its
// validation hooks: which meeting this socket belongs to, and which
// participant (if any) has joined on it.
type ConnState struct {
	Meeting       database.Meeting
	ParticipantID string
}

func (c *ConnState) joined() bool { return c.ParticipantID != "" }

// Router decodes inbound frames against the join/status/ping discriminated
// union, runs each request's validation hooks, and dispatches to Services.
type Router struct {
	services *Services
}

func NewRouter(services *Services) *Router {
	return &Router{services: services}
}

// Route parses raw as a discriminated-union inbound frame, validates it
// against state, and dispatches to the matching service. The returned value
// is the payload to marshal and write back to the socket, or nil if no
// direct response is owed (the Status service never responds directly).
func (r *Router) Route(ctx context.Context, raw []byte, state *ConnState, now time.Time) (any, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.WSMessagesRoutedTotal.WithLabelValues("invalid").Inc()
		return newErrorResponse("Invalid JSON"), apperr.New(apperr.KindProtocol, "invalid JSON")
	}
	metrics.WSMessagesRoutedTotal.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case "join":
		var req JoinRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return newErrorResponse("Invalid request: join"), apperr.New(apperr.KindProtocol, "invalid join shape")
		}
		if err := validateMeeting(state.Meeting, now, false); err != nil {
			return newErrorResponse(err.Error()), err
		}
		if state.joined() {
			err := apperr.New(apperr.KindState, "already joined")
			return newErrorResponse(err.Error()), err
		}

		pid, resp, err := r.services.Join(ctx, state.Meeting, req.Fingerprint, now)
		if err != nil {
			return newErrorResponse(err.Error()), err
		}
		state.ParticipantID = pid
		return resp, nil

	case "status":
		var req StatusRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return newErrorResponse("Invalid request: status"), apperr.New(apperr.KindProtocol, "invalid status shape")
		}
		if err := validateMeeting(state.Meeting, now, false); err != nil {
			return newErrorResponse(err.Error()), err
		}
		if !state.joined() {
			err := apperr.New(apperr.KindState, "status requires joining first")
			return newErrorResponse(err.Error()), err
		}
		status, ok := parseStatus(req.Status)
		if !ok {
			err := apperr.New(apperr.KindProtocol, "invalid status value")
			return newErrorResponse(err.Error()), err
		}

		resp, err := r.services.Status(ctx, state.Meeting, state.ParticipantID, status, now)
		if err != nil {
			return newErrorResponse(err.Error()), err
		}
		return resp, nil

	case "ping":
		// Ping overrides the default meeting-timing validation: it always
		// passes, so clients waiting in a countdown can still keep a
		// connection alive.
		resp, err := r.services.Ping(ctx, state.ParticipantID, now)
		if err != nil {
			return newErrorResponse(err.Error()), err
		}
		return resp, nil

	default:
		err := apperr.New(apperr.KindProtocol, fmt.Sprintf("invalid request: unknown type %q", env.Type))
		return newErrorResponse(err.Error()), err
	}
}

func parseStatus(s string) (database.ParticipantStatus, bool) {
	switch database.ParticipantStatus(s) {
	case database.StatusSpeaking, database.StatusEngaged, database.StatusDisengaged:
		return database.ParticipantStatus(s), true
	default:
		return "", false
	}
}

// validateMeeting is the default validate_meeting hook: the meeting must
// have started and not yet ended. pingOverride, when true, always passes.
func validateMeeting(m database.Meeting, now time.Time, pingOverride bool) error {
	if pingOverride {
		return nil
	}
	if now.Before(m.StartTS) {
		return apperr.New(apperr.KindNotStarted, "meeting has not started")
	}
	if !now.Before(m.EndTS) {
		return apperr.New(apperr.KindAlreadyEnded, "meeting has ended")
	}
	return nil
}
