package database

import "context"

// GetOrCreateRoom returns the room named name in cityID, creating it if
// absent. Unique on (name, city_id).
func (db *DB) GetOrCreateRoom(ctx context.Context, name, cityID string) (MeetingRoom, error) {
	var r MeetingRoom
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO meeting_rooms (name, city_id)
		VALUES ($1, $2)
		ON CONFLICT (name, city_id) DO UPDATE SET name = meeting_rooms.name
		RETURNING id, name, city_id, created_at
	`, name, cityID).Scan(&r.ID, &r.Name, &r.CityID, &r.CreatedAt)
	return r, err
}

// GetRoom fetches a meeting room by id.
func (db *DB) GetRoom(ctx context.Context, id string) (MeetingRoom, error) {
	var r MeetingRoom
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, city_id, created_at FROM meeting_rooms WHERE id = $1
	`, id).Scan(&r.ID, &r.Name, &r.CityID, &r.CreatedAt)
	return r, err
}
