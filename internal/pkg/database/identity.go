package database

import (
	"context"
	"fmt"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

// GetOrCreateOwner returns the owner with the given username, creating it when absent.
// created is true only for the call that inserted the row.
func (db *Database) GetOrCreateOwner(ctx context.Context, username string) (owner model.Owner, created bool, err error) {
	const selectSQL = `SELECT id, username FROM owners WHERE username = $1`

	err = db.pool.QueryRow(ctx, selectSQL, username).Scan(&owner.ID, &owner.Username)
	if err == nil {
		return owner, false, nil
	}
	if !isNoRows(err) {
		return owner, false, fmt.Errorf("select owner %q: %w", username, err)
	}

	err = db.pool.QueryRow(ctx, `
		INSERT INTO owners (username) VALUES ($1)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, username;`, username).Scan(&owner.ID, &owner.Username)
	if err == nil {
		return owner, true, nil
	}
	if !isNoRows(err) {
		return owner, false, fmt.Errorf("insert owner %q: %w", username, err)
	}

	// lost the race against a concurrent insert
	if err := db.pool.QueryRow(ctx, selectSQL, username).Scan(&owner.ID, &owner.Username); err != nil {
		return owner, false, fmt.Errorf("reselect owner %q: %w", username, err)
	}
	return owner, false, nil
}

// GetOrCreateDevice returns the device with the given name, creating it for ownerID when absent.
func (db *Database) GetOrCreateDevice(ctx context.Context, name string, ownerID int64) (device model.Device, created bool, err error) {
	const selectSQL = `SELECT id, name, owner_id, created_at FROM devices WHERE name = $1`

	err = db.pool.QueryRow(ctx, selectSQL, name).Scan(&device.ID, &device.Name, &device.OwnerID, &device.CreatedAt)
	if err == nil {
		return device, false, nil
	}
	if !isNoRows(err) {
		return device, false, fmt.Errorf("select device %q: %w", name, err)
	}

	err = db.pool.QueryRow(ctx, `
		INSERT INTO devices (name, owner_id) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, owner_id, created_at;`, name, ownerID).Scan(&device.ID, &device.Name, &device.OwnerID, &device.CreatedAt)
	if err == nil {
		return device, true, nil
	}
	if !isNoRows(err) {
		return device, false, fmt.Errorf("insert device %q: %w", name, err)
	}

	if err := db.pool.QueryRow(ctx, selectSQL, name).Scan(&device.ID, &device.Name, &device.OwnerID, &device.CreatedAt); err != nil {
		return device, false, fmt.Errorf("reselect device %q: %w", name, err)
	}
	return device, false, nil
}
