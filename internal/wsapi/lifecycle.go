package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/pulsemeet/meetingtracker/internal/apperr"
	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/engagement"
	"github.com/pulsemeet/meetingtracker/internal/metrics"
	"github.com/pulsemeet/meetingtracker/internal/pubsub"
	"github.com/pulsemeet/meetingtracker/internal/timeutil"
)

const (
	closeMeetingNotFound = 4404
)

// MeetingLookup is the subset of the meeting service the connection
// lifecycle needs.
type MeetingLookup interface {
	GetByID(ctx context.Context, id string) (database.Meeting, error)
}

// NameLookup resolves the human-readable city/room names shown in the
// countdown payload (§4.G step 2), supplementing the meeting record with
// the eager-loaded context the original's listing endpoints carried.
type NameLookup interface {
	GetCity(ctx context.Context, id string) (database.City, error)
	GetRoom(ctx context.Context, id string) (database.MeetingRoom, error)
}

// Connection drives one WebSocket's full lifecycle: validate, subscribe,
// stream, close at meeting end, clean up.
type Connection struct {
	meetings MeetingLookup
	names    NameLookup
	engine   *engagement.Engine
	bus      *pubsub.Bus
	router   *Router
	log      zerolog.Logger
}

func NewConnection(meetings MeetingLookup, names NameLookup, engine *engagement.Engine, bus *pubsub.Bus, router *Router, log zerolog.Logger) *Connection {
	return &Connection{
		meetings: meetings,
		names:    names,
		engine:   engine,
		bus:      bus,
		router:   router,
		log:      log.With().Str("component", "wsapi").Logger(),
	}
}

// Handle runs the full connection lifecycle for socket against meetingID
// until the client disconnects, the meeting ends, or ctx is cancelled.
func (c *Connection) Handle(ctx context.Context, socket *websocket.Conn, meetingID string) {
	metrics.WSConnectionsTotal.Inc()
	now := time.Now().UTC()

	meeting, err := c.meetings.GetByID(ctx, meetingID)
	if err != nil {
		c.writeJSON(socket, newErrorResponse("meeting not found"))
		c.closeWithCode(socket, closeMeetingNotFound, "meeting not found")
		return
	}

	hasStarted := !now.Before(meeting.StartTS)
	hasEnded := !now.Before(meeting.EndTS)

	if hasEnded {
		c.sendMeetingEnded(ctx, socket, meeting)
		c.closeWithCode(socket, websocket.CloseNormalClosure, "Meeting ended")
		return
	}
	if !hasStarted {
		c.sendCountdown(ctx, socket, meeting, now)
	}

	state := &ConnState{Meeting: meeting}
	connCtx, cancel := context.WithCancel(ctx)
	var closed sync.Once
	closeConn := func() { closed.Do(cancel) }
	defer closeConn()

	var wg sync.WaitGroup
	wg.Add(2)

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return socket.WriteJSON(v)
	}

	go func() {
		defer wg.Done()
		c.runSubscriber(connCtx, socket, &writeMu, meeting.ID, closeConn)
	}()

	go func() {
		defer wg.Done()
		c.runEndWatcher(connCtx, socket, writeJSON, meeting, closeConn)
	}()

	c.receiveLoop(connCtx, socket, state, writeJSON, closeConn)

	closeConn()
	socket.Close()
	wg.Wait()

	if state.joined() {
		if err := c.router.services.Leave(context.Background(), meeting, state.ParticipantID, time.Now().UTC()); err != nil {
			c.log.Error().Err(err).Str("meeting_id", meeting.ID).Msg("leave cleanup failed")
		}
	}
}

// runSubscriber reads the meeting's channel and writes every message to the
// socket until closeConn fires.
func (c *Connection) runSubscriber(ctx context.Context, socket *websocket.Conn, writeMu *sync.Mutex, meetingID string, closeConn func()) {
	ch, cancel := c.bus.Subscribe(pubsub.MeetingChannel(meetingID))
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			writeMu.Lock()
			err := socket.WriteMessage(websocket.TextMessage, msg)
			writeMu.Unlock()
			if err != nil {
				closeConn()
				return
			}
		}
	}
}

// runEndWatcher sleeps until the meeting's end_ts, then (if not already
// closed) computes and publishes the end-of-meeting summary and closes the
// socket.
func (c *Connection) runEndWatcher(ctx context.Context, socket *websocket.Conn, writeJSON func(any) error, meeting database.Meeting, closeConn func()) {
	delay := time.Until(meeting.EndTS)
	if delay < 0 {
		delay = 0
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	summary, err := c.engine.ComputeSummary(context.Background(), meeting)
	if err != nil {
		c.log.Error().Err(err).Str("meeting_id", meeting.ID).Msg("end-of-meeting summary computation failed")
		closeConn()
		return
	}

	resp := buildMeetingEndedResponse(meeting, summary)
	if payload, err := json.Marshal(resp); err == nil {
		c.bus.Publish(pubsub.MeetingChannel(meeting.ID), payload)
	}

	_ = writeJSON(resp)
	closeConn()
	c.closeWithCode(socket, websocket.CloseNormalClosure, "Meeting ended")
}

// receiveLoop reads inbound frames and routes each one until the client
// disconnects or ctx is cancelled.
func (c *Connection) receiveLoop(ctx context.Context, socket *websocket.Conn, state *ConnState, writeJSON func(any) error, closeConn func()) {
	defer closeConn()

	type frame struct {
		data []byte
		err  error
	}
	frames := make(chan frame, 1)

	go func() {
		for {
			_, data, err := socket.ReadMessage()
			frames <- frame{data: data, err: err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-frames:
			if f.err != nil {
				if !errors.Is(f.err, websocket.ErrCloseSent) {
					c.log.Debug().Err(f.err).Msg("socket read ended")
				}
				return
			}
			resp, err := c.router.Route(ctx, f.data, state, time.Now().UTC())
			if err != nil {
				if apperr.Is(err, apperr.KindAlreadyEnded) {
					_ = writeJSON(resp)
					return
				}
			}
			if resp != nil {
				_ = writeJSON(resp)
			}
		}
	}
}

func (c *Connection) sendCountdown(ctx context.Context, socket *websocket.Conn, meeting database.Meeting, now time.Time) {
	resp := meetingCountdownResponse{
		Type:       "meeting_countdown",
		MeetingID:  meeting.ID,
		StartTime:  timeutil.ISOFormatUTC(meeting.StartTS),
		ServerTime: timeutil.ISOFormatUTC(now),
	}
	if meeting.CityID != nil {
		if city, err := c.names.GetCity(ctx, *meeting.CityID); err == nil {
			resp.CityName = city.Name
		}
	}
	if meeting.MeetingRoomID != nil {
		if room, err := c.names.GetRoom(ctx, *meeting.MeetingRoomID); err == nil {
			resp.MeetingRoomName = room.Name
		}
	}
	c.writeJSON(socket, resp)
}

func (c *Connection) sendMeetingEnded(ctx context.Context, socket *websocket.Conn, meeting database.Meeting) {
	summary, err := c.engine.ComputeSummary(ctx, meeting)
	if err != nil {
		c.writeJSON(socket, newErrorResponse("Internal error"))
		return
	}
	c.writeJSON(socket, buildMeetingEndedResponse(meeting, summary))
}

func buildMeetingEndedResponse(meeting database.Meeting, summary database.MeetingSummary) meetingEndedResponse {
	return meetingEndedResponse{
		Type:    "meeting_ended",
		EndTime: timeutil.ISOFormatUTC(meeting.EndTS),
		Summary: meetingEndedBody{
			Meeting: meetingMetadata{
				ID:    meeting.ID,
				Start: timeutil.ISOFormatUTC(meeting.StartTS),
				End:   timeutil.ISOFormatUTC(meeting.EndTS),
			},
			DurationMinutes:      int(meeting.EndTS.Sub(meeting.StartTS).Minutes()),
			MaxParticipants:      summary.MaxParticipants,
			NormalizedEngagement: summary.NormalizedEngagement,
			EngagementLevel:      string(summary.EngagementLevel),
		},
	}
}

func (c *Connection) writeJSON(socket *websocket.Conn, v any) {
	if err := socket.WriteJSON(v); err != nil {
		c.log.Debug().Err(err).Msg("write failed")
	}
}

func (c *Connection) closeWithCode(socket *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	socket.Close()
}
