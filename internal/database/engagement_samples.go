package database

import (
	"context"
	"strconv"
	"time"
)

// UpsertEngagementSample records status for participantID at bucket,
// overwriting whatever was previously recorded for that (participant,
// bucket) pair — last write wins.
func (db *DB) UpsertEngagementSample(ctx context.Context, meetingID, participantID string, bucket time.Time, status ParticipantStatus) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO engagement_samples (meeting_id, participant_id, bucket, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (participant_id, bucket) DO UPDATE SET status = $4
	`, meetingID, participantID, bucket, status)
	return err
}

// ListEngagementSamples returns every sample for meetingID ordered by
// bucket, optionally bounded to [start, end].
func (db *DB) ListEngagementSamples(ctx context.Context, meetingID string, start, end *time.Time) ([]EngagementSample, error) {
	query := `
		SELECT id, meeting_id, participant_id, bucket, status, created_at
		FROM engagement_samples WHERE meeting_id = $1
	`
	args := []any{meetingID}
	if start != nil {
		args = append(args, *start)
		query += " AND bucket >= $" + strconv.Itoa(len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += " AND bucket <= $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY bucket"

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EngagementSample
	for rows.Next() {
		var s EngagementSample
		if err := rows.Scan(&s.ID, &s.MeetingID, &s.ParticipantID, &s.Bucket, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
