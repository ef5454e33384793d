package database

import (
	"context"
	"strings"
)

// schemaSQL creates the full relational schema for a fresh database. It is
// idempotent (IF NOT EXISTS everywhere) so it is safe to run on every
// process start, following the same fresh-db bootstrap idiom the teacher
// uses instead of a full migration runner (out of scope here, see
// DESIGN.md).
const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS cities (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name text NOT NULL UNIQUE,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS meeting_rooms (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name text NOT NULL,
	city_id uuid NOT NULL REFERENCES cities(id),
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (name, city_id)
);

CREATE TABLE IF NOT EXISTS ms_teams_meetings (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	thread_id text,
	meeting_id text,
	invite_url text,
	created_at timestamptz NOT NULL DEFAULT now(),
	CHECK (thread_id IS NOT NULL OR meeting_id IS NOT NULL OR invite_url IS NOT NULL)
);

CREATE UNIQUE INDEX IF NOT EXISTS ms_teams_meetings_thread_id_idx
	ON ms_teams_meetings (thread_id) WHERE thread_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS ms_teams_meetings_meeting_id_idx
	ON ms_teams_meetings (meeting_id) WHERE meeting_id IS NOT NULL AND thread_id IS NULL;

CREATE TABLE IF NOT EXISTS meetings (
	id char(36) PRIMARY KEY,
	start_ts timestamptz NOT NULL,
	end_ts timestamptz NOT NULL,
	city_id uuid REFERENCES cities(id),
	meeting_room_id uuid REFERENCES meeting_rooms(id),
	ms_teams_meeting_id uuid REFERENCES ms_teams_meetings(id),
	created_at timestamptz NOT NULL DEFAULT now(),
	CHECK (meeting_room_id IS NOT NULL OR ms_teams_meeting_id IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS meetings_active_idx ON meetings (start_ts, end_ts);

CREATE TABLE IF NOT EXISTS participants (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	meeting_id char(36) NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	device_fingerprint text NOT NULL,
	last_status text,
	last_seen_at timestamptz,
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (meeting_id, device_fingerprint)
);

CREATE TABLE IF NOT EXISTS engagement_samples (
	id bigserial PRIMARY KEY,
	meeting_id char(36) NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	participant_id uuid NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
	bucket timestamptz NOT NULL,
	status text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (participant_id, bucket)
);

CREATE INDEX IF NOT EXISTS engagement_samples_meeting_bucket_idx
	ON engagement_samples (meeting_id, bucket);

CREATE TABLE IF NOT EXISTS meeting_summaries (
	meeting_id char(36) PRIMARY KEY REFERENCES meetings(id) ON DELETE CASCADE,
	max_participants integer NOT NULL,
	normalized_engagement double precision NOT NULL,
	engagement_level text NOT NULL,
	computed_at timestamptz NOT NULL DEFAULT now()
);
`

// InitSchema applies the schema to db in one transaction and logs once it
// has committed. It is safe to call on every startup.
func (db *DB) InitSchema(ctx context.Context) error {
	statements := strings.Split(schemaSQL, ";\n")
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	db.log.Info().Msg("schema initialized")
	return nil
}
