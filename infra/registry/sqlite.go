// Package registry provides the SQLite-backed device configuration store.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gridsense/tapctl/core/model"
	coreregistry "github.com/gridsense/tapctl/core/registry"
)

// SQLite persists device configurations and the audit trail in a SQLite
// database. Configurations are stored as JSON documents and normalized into
// the canonical shape on read, so legacy field variants surviving in old rows
// are handled at this boundary.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path and ensures the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS devices (
        device_id TEXT PRIMARY KEY,
        config TEXT NOT NULL,
        last_command_ms INTEGER NOT NULL DEFAULT 0
    );
    CREATE TABLE IF NOT EXISTS audit_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER NOT NULL,
        device_id TEXT NOT NULL,
        action TEXT NOT NULL,
        detail TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) GetConfig(ctx context.Context, deviceID string) (model.DeviceConfig, error) {
	var doc string
	var lastMS int64
	err := s.db.QueryRowContext(ctx,
		`SELECT config, last_command_ms FROM devices WHERE device_id = ?`, deviceID).
		Scan(&doc, &lastMS)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DeviceConfig{}, coreregistry.ErrNotFound
	}
	if err != nil {
		return model.DeviceConfig{}, err
	}
	return decodeConfig(deviceID, doc, lastMS)
}

func (s *SQLite) ListConfigs(ctx context.Context) ([]model.DeviceConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT device_id, config, last_command_ms FROM devices ORDER BY device_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DeviceConfig
	for rows.Next() {
		var id, doc string
		var lastMS int64
		if err := rows.Scan(&id, &doc, &lastMS); err != nil {
			return nil, err
		}
		cfg, err := decodeConfig(id, doc, lastMS)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (s *SQLite) PutConfig(ctx context.Context, cfg model.DeviceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO devices (device_id, config) VALUES (?, ?)
         ON CONFLICT(device_id) DO UPDATE SET config = excluded.config`,
		cfg.DeviceID, string(doc))
	return err
}

func (s *SQLite) SetLastCommandTime(ctx context.Context, deviceID string, ts time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE devices SET last_command_ms = ? WHERE device_id = ?`,
		ts.UnixMilli(), deviceID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return coreregistry.ErrNotFound
	}
	return nil
}

func (s *SQLite) AppendAuditEntry(ctx context.Context, deviceID, action, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (ts, device_id, action, detail) VALUES (?, ?, ?, ?)`,
		time.Now().UnixMilli(), deviceID, action, detail)
	return err
}

// AuditEntries returns the audit lines for a device, newest first.
func (s *SQLite) AuditEntries(ctx context.Context, deviceID string, limit int) ([]coreregistry.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, device_id, action, detail FROM audit_log
         WHERE device_id = ? ORDER BY id DESC LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []coreregistry.AuditEntry
	for rows.Next() {
		var e coreregistry.AuditEntry
		var ms int64
		if err := rows.Scan(&ms, &e.DeviceID, &e.Action, &e.Detail); err != nil {
			return nil, err
		}
		e.Time = time.UnixMilli(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func decodeConfig(deviceID, doc string, lastMS int64) (model.DeviceConfig, error) {
	var cfg model.DeviceConfig
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return model.DeviceConfig{}, fmt.Errorf("decode config for %s: %w", deviceID, err)
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = deviceID
	}
	if lastMS > 0 {
		cfg.LastCommandTime = time.UnixMilli(lastMS)
	}
	return cfg, nil
}
