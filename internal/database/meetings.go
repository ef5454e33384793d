package database

import (
	"context"
	"time"
)

// GetOrCreateMeeting is the single atomic upsert keyed by the deterministic
// meeting id. On conflict, null metadata columns are filled in from the new
// row (coalesce) but a non-null value already stored is never overwritten —
// the same coalesce-on-conflict pattern used elsewhere in this package.
func (db *DB) GetOrCreateMeeting(ctx context.Context, id string, start, end time.Time, cityID, roomID, teamsMeetingID *string) (Meeting, error) {
	var m Meeting
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO meetings (id, start_ts, end_ts, city_id, meeting_room_id, ms_teams_meeting_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			city_id             = COALESCE(meetings.city_id, $4),
			meeting_room_id     = COALESCE(meetings.meeting_room_id, $5),
			ms_teams_meeting_id = COALESCE(meetings.ms_teams_meeting_id, $6)
		RETURNING id, start_ts, end_ts, city_id, meeting_room_id, ms_teams_meeting_id, created_at
	`, id, start, end, cityID, roomID, teamsMeetingID).Scan(
		&m.ID, &m.StartTS, &m.EndTS, &m.CityID, &m.MeetingRoomID, &m.MSTeamsMeetingID, &m.CreatedAt,
	)
	return m, err
}

// GetMeetingByID fetches a meeting by its deterministic id.
func (db *DB) GetMeetingByID(ctx context.Context, id string) (Meeting, error) {
	var m Meeting
	err := db.Pool.QueryRow(ctx, `
		SELECT id, start_ts, end_ts, city_id, meeting_room_id, ms_teams_meeting_id, created_at
		FROM meetings WHERE id = $1
	`, id).Scan(&m.ID, &m.StartTS, &m.EndTS, &m.CityID, &m.MeetingRoomID, &m.MSTeamsMeetingID, &m.CreatedAt)
	return m, err
}

// ListMeetings pages meetings ordered by start_ts desc, size per page.
func (db *DB) ListMeetings(ctx context.Context, page, size int) ([]Meeting, int, error) {
	if size <= 0 {
		size = 20
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size

	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM meetings`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, start_ts, end_ts, city_id, meeting_room_id, ms_teams_meeting_id, created_at
		FROM meetings ORDER BY start_ts DESC LIMIT $1 OFFSET $2
	`, size, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.StartTS, &m.EndTS, &m.CityID, &m.MeetingRoomID, &m.MSTeamsMeetingID, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

// GetActiveMeetings returns every meeting whose [start_ts, end_ts) window
// contains now.
func (db *DB) GetActiveMeetings(ctx context.Context, now time.Time) ([]Meeting, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, start_ts, end_ts, city_id, meeting_room_id, ms_teams_meeting_id, created_at
		FROM meetings WHERE start_ts <= $1 AND end_ts > $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.StartTS, &m.EndTS, &m.CityID, &m.MeetingRoomID, &m.MSTeamsMeetingID, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
