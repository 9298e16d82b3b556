package stable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Entry is one key/value pair of a map.
type Entry struct {
	Key   []byte
	Value []byte
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, mapID uint8, key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM stable_entries WHERE map_id = ? AND key = ?
	`, mapID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get map %d: %w", mapID, err)
	}
	return value, true, nil
}

// Insert stores value under key and returns the value it replaced, if any.
func (s *Store) Insert(ctx context.Context, mapID uint8, key, value []byte) (prev []byte, had bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("insert map %d: begin: %w", mapID, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		SELECT value FROM stable_entries WHERE map_id = ? AND key = ?
	`, mapID, key).Scan(&prev)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return nil, false, fmt.Errorf("insert map %d: read previous: %w", mapID, err)
	default:
		had = true
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO stable_entries (map_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(map_id, key) DO UPDATE SET value = excluded.value
	`, mapID, key, value); err != nil {
		return nil, false, fmt.Errorf("insert map %d: %w", mapID, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("insert map %d: commit: %w", mapID, err)
	}
	return prev, had, nil
}

// Remove deletes key and returns the value it held, if any.
func (s *Store) Remove(ctx context.Context, mapID uint8, key []byte) ([]byte, bool, error) {
	var prev []byte
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM stable_entries WHERE map_id = ? AND key = ? RETURNING value
	`, mapID, key).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("remove map %d: %w", mapID, err)
	}
	return prev, true, nil
}

// ContainsKey reports whether key is present.
func (s *Store) ContainsKey(ctx context.Context, mapID uint8, key []byte) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM stable_entries WHERE map_id = ? AND key = ?)
	`, mapID, key).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("contains map %d: %w", mapID, err)
	}
	return found == 1, nil
}

// Len returns the number of entries in the map.
func (s *Store) Len(ctx context.Context, mapID uint8) (uint64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM stable_entries WHERE map_id = ?
	`, mapID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("len map %d: %w", mapID, err)
	}
	return uint64(n), nil
}

// IsEmpty reports whether the map has no entries.
func (s *Store) IsEmpty(ctx context.Context, mapID uint8) (bool, error) {
	n, err := s.Len(ctx, mapID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Items returns entries in key order, skipping the first start entries.
// A limit of zero or less returns everything after start.
//
// Key order is memcmp over the stored key bytes. For keys encoded with
// wire.Marshal this is not numeric order: varints put the low seven bits
// first, so nat64 256 (0x80 0x02) sorts before 255 (0xff 0x01).
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Items(ctx context.Context, mapID uint8, start, limit int) ([]Entry, error) {
	if start < 0 {
		start = 0
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM stable_entries
		WHERE map_id = ?
		ORDER BY key COLLATE BINARY ASC
		LIMIT ? OFFSET ?
	`, mapID, limit, start)
	if err != nil {
		return nil, fmt.Errorf("items map %d: %w", mapID, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("items map %d: scan: %w", mapID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("items map %d: iterate: %w", mapID, err)
	}
	return entries, nil
}

// Keys returns every key in the same memcmp order as Items.
func (s *Store) Keys(ctx context.Context, mapID uint8) ([][]byte, error) {
	entries, err := s.Items(ctx, mapID, 0, 0)
	if err != nil {
		return nil, err
	}
	keys := make([][]byte, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys, nil
}

// Values returns every value in key order.
func (s *Store) Values(ctx context.Context, mapID uint8) ([][]byte, error) {
	entries, err := s.Items(ctx, mapID, 0, 0)
	if err != nil {
		return nil, err
	}
	values := make([][]byte, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	return values, nil
}

// Declaration is the registered shape of one map.
type Declaration struct {
	MapID     uint8
	Name      string
	KeyType   string
	ValueType string
}

// RedeclaredError reports a map id whose stored declaration differs from the
// one being registered.
type RedeclaredError struct {
	Stored Declaration
	Given  Declaration
}

func (e *RedeclaredError) Error() string {
	return fmt.Sprintf("stable map %d: declared as %s(%s -> %s), stored as %s(%s -> %s)",
		e.Given.MapID, e.Given.Name, e.Given.KeyType, e.Given.ValueType,
		e.Stored.Name, e.Stored.KeyType, e.Stored.ValueType)
}

// Declare registers d. Re-registering an identical declaration is a no-op;
// a different one for the same id returns a *RedeclaredError.
func (s *Store) Declare(ctx context.Context, d Declaration) error {
	var stored Declaration
	err := s.db.QueryRowContext(ctx, `
		SELECT map_id, name, key_type, value_type FROM stable_maps WHERE map_id = ?
	`, d.MapID).Scan(&stored.MapID, &stored.Name, &stored.KeyType, &stored.ValueType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO stable_maps (map_id, name, key_type, value_type) VALUES (?, ?, ?, ?)
		`, d.MapID, d.Name, d.KeyType, d.ValueType)
		if err != nil {
			return fmt.Errorf("declare map %d: %w", d.MapID, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("declare map %d: %w", d.MapID, err)
	}
	if stored != d {
		return &RedeclaredError{Stored: stored, Given: d}
	}
	return nil
}

// Declarations returns every registered map in id order.
func (s *Store) Declarations(ctx context.Context) ([]Declaration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT map_id, name, key_type, value_type FROM stable_maps ORDER BY map_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	defer rows.Close()

	out := []Declaration{}
	for rows.Next() {
		var d Declaration
		if err := rows.Scan(&d.MapID, &d.Name, &d.KeyType, &d.ValueType); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate declarations: %w", err)
	}
	return out, nil
}
