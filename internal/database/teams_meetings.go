package database

import "context"

// GetOrCreateTeamsMeeting deduplicates a parsed Teams context by thread_id
// first, then meeting_id, creating a new row only when neither matches an
// existing one. At least one of threadID/meetingID/inviteURL must be
// non-empty; callers are expected to have already validated this.
func (db *DB) GetOrCreateTeamsMeeting(ctx context.Context, threadID, meetingID, inviteURL string) (MSTeamsMeeting, error) {
	if threadID != "" {
		if m, ok, err := db.findTeamsMeetingByThread(ctx, threadID); err != nil {
			return MSTeamsMeeting{}, err
		} else if ok {
			return m, nil
		}
	}
	if meetingID != "" {
		if m, ok, err := db.findTeamsMeetingByMeetingID(ctx, meetingID); err != nil {
			return MSTeamsMeeting{}, err
		} else if ok {
			return m, nil
		}
	}

	var m MSTeamsMeeting
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO ms_teams_meetings (thread_id, meeting_id, invite_url)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), NULLIF($3, ''))
		RETURNING id, thread_id, meeting_id, invite_url, created_at
	`, threadID, meetingID, inviteURL).Scan(&m.ID, &m.ThreadID, &m.MeetingID, &m.InviteURL, &m.CreatedAt)
	return m, err
}

func (db *DB) findTeamsMeetingByThread(ctx context.Context, threadID string) (MSTeamsMeeting, bool, error) {
	var m MSTeamsMeeting
	err := db.Pool.QueryRow(ctx, `
		SELECT id, thread_id, meeting_id, invite_url, created_at
		FROM ms_teams_meetings WHERE thread_id = $1
	`, threadID).Scan(&m.ID, &m.ThreadID, &m.MeetingID, &m.InviteURL, &m.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return MSTeamsMeeting{}, false, nil
		}
		return MSTeamsMeeting{}, false, err
	}
	return m, true, nil
}

func (db *DB) findTeamsMeetingByMeetingID(ctx context.Context, meetingID string) (MSTeamsMeeting, bool, error) {
	var m MSTeamsMeeting
	err := db.Pool.QueryRow(ctx, `
		SELECT id, thread_id, meeting_id, invite_url, created_at
		FROM ms_teams_meetings WHERE meeting_id = $1
	`, meetingID).Scan(&m.ID, &m.ThreadID, &m.MeetingID, &m.InviteURL, &m.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return MSTeamsMeeting{}, false, nil
		}
		return MSTeamsMeeting{}, false, err
	}
	return m, true, nil
}
