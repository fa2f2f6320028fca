package sqlite

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Probe is one backend /health check.
type Probe struct {
	ID        int64     `json:"id"`
	CheckedAt time.Time `json:"checkedAt"`
	Healthy   bool      `json:"healthy"`
	LatencyMS int64     `json:"latencyMs"`
	Error     string    `json:"error,omitempty"`
}

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS health_probes (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		backend_url TEXT NOT NULL DEFAULT '',
		checked_at  DATETIME NOT NULL,
		healthy     INTEGER NOT NULL,
		latency_ms  INTEGER NOT NULL DEFAULT 0,
		error       TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_health_probes_checked_at ON health_probes(checked_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func InsertProbe(db *sql.DB, backendURL string, p Probe) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO health_probes (backend_url, checked_at, healthy, latency_ms, error)
		 VALUES (?, ?, ?, ?, ?)`,
		backendURL, p.CheckedAt, p.Healthy, p.LatencyMS, p.Error,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentProbes returns up to limit probes, newest first.
func RecentProbes(db *sql.DB, limit int) ([]Probe, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT id, checked_at, healthy, latency_ms, error
		 FROM health_probes
		 ORDER BY checked_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var probes []Probe
	for rows.Next() {
		var p Probe
		if err := rows.Scan(&p.ID, &p.CheckedAt, &p.Healthy, &p.LatencyMS, &p.Error); err != nil {
			return nil, err
		}
		probes = append(probes, p)
	}
	return probes, rows.Err()
}

// LastProbe returns sql.ErrNoRows when nothing has been recorded yet.
func LastProbe(db *sql.DB) (Probe, error) {
	var p Probe
	err := db.QueryRow(
		`SELECT id, checked_at, healthy, latency_ms, error
		 FROM health_probes
		 ORDER BY checked_at DESC, id DESC
		 LIMIT 1`,
	).Scan(&p.ID, &p.CheckedAt, &p.Healthy, &p.LatencyMS, &p.Error)
	return p, err
}

// DeleteProbesBefore prunes history older than cutoff.
func DeleteProbesBefore(db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM health_probes WHERE checked_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
