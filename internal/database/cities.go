package database

import "context"

// GetOrCreateCity returns the city named name, creating it if absent. City
// rows are never mutated once created.
func (db *DB) GetOrCreateCity(ctx context.Context, name string) (City, error) {
	var c City
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO cities (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = cities.name
		RETURNING id, name, created_at
	`, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

// GetCity fetches a city by id.
func (db *DB) GetCity(ctx context.Context, id string) (City, error) {
	var c City
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM cities WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}
