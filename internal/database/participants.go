package database

import (
	"context"
	"time"
)

// FindParticipantByFingerprint looks up an existing participant in meetingID
// by device fingerprint, so a reconnect from the same device reuses the row.
func (db *DB) FindParticipantByFingerprint(ctx context.Context, meetingID, fingerprint string) (Participant, bool, error) {
	var p Participant
	err := db.Pool.QueryRow(ctx, `
		SELECT id, meeting_id, device_fingerprint, last_status, last_seen_at, created_at
		FROM participants WHERE meeting_id = $1 AND device_fingerprint = $2
	`, meetingID, fingerprint).Scan(&p.ID, &p.MeetingID, &p.DeviceFP, &p.LastStatus, &p.LastSeenAt, &p.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return Participant{}, false, nil
		}
		return Participant{}, false, err
	}
	return p, true, nil
}

// CreateParticipant inserts a new participant row for a first-seen
// fingerprint in a meeting.
func (db *DB) CreateParticipant(ctx context.Context, meetingID, fingerprint string) (Participant, error) {
	var p Participant
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO participants (meeting_id, device_fingerprint)
		VALUES ($1, $2)
		RETURNING id, meeting_id, device_fingerprint, last_status, last_seen_at, created_at
	`, meetingID, fingerprint).Scan(&p.ID, &p.MeetingID, &p.DeviceFP, &p.LastStatus, &p.LastSeenAt, &p.CreatedAt)
	return p, err
}

// GetParticipantWithEngagement fetches a participant by id.
func (db *DB) GetParticipantWithEngagement(ctx context.Context, id string) (Participant, error) {
	var p Participant
	err := db.Pool.QueryRow(ctx, `
		SELECT id, meeting_id, device_fingerprint, last_status, last_seen_at, created_at
		FROM participants WHERE id = $1
	`, id).Scan(&p.ID, &p.MeetingID, &p.DeviceFP, &p.LastStatus, &p.LastSeenAt, &p.CreatedAt)
	return p, err
}

// ListParticipantsForMeeting returns every participant ever seen in
// meetingID, in creation order.
func (db *DB) ListParticipantsForMeeting(ctx context.Context, meetingID string) ([]Participant, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, meeting_id, device_fingerprint, last_status, last_seen_at, created_at
		FROM participants WHERE meeting_id = $1 ORDER BY created_at
	`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.MeetingID, &p.DeviceFP, &p.LastStatus, &p.LastSeenAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// UpdateParticipantLastStatus records the most recently reported status and
// bumps last_seen_at to now.
func (db *DB) UpdateParticipantLastStatus(ctx context.Context, participantID string, status ParticipantStatus, now time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE participants SET last_status = $2, last_seen_at = $3 WHERE id = $1
	`, participantID, status, now)
	return err
}

// TouchParticipant bumps last_seen_at without changing last_status, used by
// join and ping (which report presence but not an engagement status).
func (db *DB) TouchParticipant(ctx context.Context, participantID string, now time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE participants SET last_seen_at = $2 WHERE id = $1
	`, participantID, now)
	return err
}

// MaxParticipantCount returns how many distinct participants a meeting has
// ever had.
func (db *DB) MaxParticipantCount(ctx context.Context, meetingID string) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM participants WHERE meeting_id = $1
	`, meetingID).Scan(&n)
	return n, err
}
