// internal/archive/archive.go

// Package archive persists completed runs, their step-boundary snapshot
// series, and their emission records to a SQLite database.
package archive

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trts-core/engine"
	"trts/internal/runner"
)

// Register parts are stored as exact decimal TEXT: unreduced numerators and
// denominators outgrow int64 within tens of steps.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	upsilon_seed      TEXT NOT NULL,
	beta_seed         TEXT NOT NULL,
	koppa_seed        TEXT,
	koppa_mode        TEXT NOT NULL,
	transform         TEXT NOT NULL,
	propagation       TEXT NOT NULL,
	trigger_map       TEXT NOT NULL,
	oracle            TEXT NOT NULL,
	steps             INTEGER NOT NULL,
	started_at        TEXT NOT NULL,
	duration_ms       INTEGER NOT NULL,
	final_upsilon_num TEXT NOT NULL,
	final_upsilon_den TEXT NOT NULL,
	final_beta_num    TEXT NOT NULL,
	final_beta_den    TEXT NOT NULL,
	final_koppa_num   TEXT NOT NULL,
	final_koppa_den   TEXT NOT NULL,
	final_ratio       REAL NOT NULL,
	target            REAL NOT NULL,
	final_error       REAL NOT NULL,
	emission_count    INTEGER NOT NULL,
	converged         INTEGER NOT NULL,
	error             TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id      TEXT NOT NULL,
	step        INTEGER NOT NULL,
	microtick   INTEGER NOT NULL,
	upsilon_num TEXT NOT NULL,
	upsilon_den TEXT NOT NULL,
	beta_num    TEXT NOT NULL,
	beta_den    TEXT NOT NULL,
	koppa_num   TEXT NOT NULL,
	koppa_den   TEXT NOT NULL,
	rho         INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id, step);

CREATE TABLE IF NOT EXISTS emissions (
	run_id      TEXT NOT NULL,
	step        INTEGER NOT NULL,
	microtick   INTEGER NOT NULL,
	upsilon_num TEXT NOT NULL,
	upsilon_den TEXT NOT NULL,
	beta_num    TEXT NOT NULL,
	beta_den    TEXT NOT NULL,
	koppa_num   TEXT NOT NULL,
	koppa_den   TEXT NOT NULL,
	rho         INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_emissions_run ON emissions(run_id, step, microtick);
`

// timeLayout keeps a fixed-width fraction so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store writes run results to one SQLite file. Methods are safe for
// concurrent use; writes are serialized.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the archive at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: init %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveResult writes one run row plus its full snapshot and emission series
// in a single transaction. Failed runs are stored too, with their error
// text and whatever series completed before the failure.
func (s *Store) SaveResult(res runner.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	if err := insertRun(tx, res); err != nil {
		tx.Rollback()
		return fmt.Errorf("archive: run %q: %w", res.Name, err)
	}
	if err := insertSeries(tx, "snapshots", res.ID, res.Snapshots); err != nil {
		tx.Rollback()
		return fmt.Errorf("archive: run %q snapshots: %w", res.Name, err)
	}
	if err := insertSeries(tx, "emissions", res.ID, res.Emissions); err != nil {
		tx.Rollback()
		return fmt.Errorf("archive: run %q emissions: %w", res.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit %q: %w", res.Name, err)
	}
	return nil
}

func insertRun(tx *sql.Tx, res runner.Result) error {
	var koppaSeed any
	if res.Spec.Koppa.Valid() {
		koppaSeed = res.Spec.Koppa.String()
	}
	var errText any
	if res.Err != nil {
		errText = res.Err.Error()
	}
	sum := res.Summary
	_, err := tx.Exec(`
		INSERT INTO runs (id, name, upsilon_seed, beta_seed, koppa_seed,
			koppa_mode, transform, propagation, trigger_map, oracle, steps,
			started_at, duration_ms,
			final_upsilon_num, final_upsilon_den, final_beta_num, final_beta_den,
			final_koppa_num, final_koppa_den,
			final_ratio, target, final_error, emission_count, converged, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID, res.Name,
		res.Spec.Upsilon.String(), res.Spec.Beta.String(), koppaSeed,
		res.Spec.KoppaMode.String(), res.Spec.Transform.String(),
		res.Spec.Propagation.String(), res.Spec.TriggerMap.String(),
		res.Spec.OracleName, res.Spec.Steps,
		res.Started.UTC().Format(timeLayout), res.Duration.Milliseconds(),
		res.Final.Upsilon.NumString(), res.Final.Upsilon.DenString(),
		res.Final.Beta.NumString(), res.Final.Beta.DenString(),
		res.Final.Koppa.NumString(), res.Final.Koppa.DenString(),
		sum.FinalRatio, res.Spec.Target, sum.FinalError,
		sum.EmissionCount, boolInt(sum.Converged), errText,
	)
	return err
}

func insertSeries(tx *sql.Tx, table, runID string, series []engine.Snapshot) error {
	if len(series) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO ` + table + ` (run_id, step, microtick,
			upsilon_num, upsilon_den, beta_num, beta_den, koppa_num, koppa_den, rho)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, snap := range series {
		if _, err := stmt.Exec(
			runID, snap.Step, snap.Microtick,
			snap.Upsilon.NumString(), snap.Upsilon.DenString(),
			snap.Beta.NumString(), snap.Beta.DenString(),
			snap.Koppa.NumString(), snap.Koppa.DenString(),
			snap.Rho,
		); err != nil {
			return err
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ---------- read-back ----------

// RunRow is the stored form of one run, with the split register columns
// reassembled into "num/den" text.
type RunRow struct {
	ID          string
	Name        string
	UpsilonSeed string
	BetaSeed    string
	KoppaSeed   string
	KoppaMode   string
	Transform   string
	Propagation string
	TriggerMap  string
	Oracle      string
	Steps       int

	StartedAt time.Time
	Duration  time.Duration

	FinalUpsilon string
	FinalBeta    string
	FinalKoppa   string
	FinalRatio   float64
	Target       float64
	FinalError   float64

	EmissionCount int
	Converged     bool
	Error         string
}

// Runs returns every stored run ordered by start time, then name.
func (s *Store) Runs() ([]RunRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, name, upsilon_seed, beta_seed, koppa_seed,
			koppa_mode, transform, propagation, trigger_map, oracle, steps,
			started_at, duration_ms,
			final_upsilon_num, final_upsilon_den, final_beta_num, final_beta_den,
			final_koppa_num, final_koppa_den,
			final_ratio, target, final_error, emission_count, converged, error
		FROM runs ORDER BY started_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("archive: query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			r          RunRow
			koppaSeed  sql.NullString
			errText    sql.NullString
			startedAt  string
			durationMs int64
			converged  int
			uNum, uDen string
			bNum, bDen string
			kNum, kDen string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.UpsilonSeed, &r.BetaSeed, &koppaSeed,
			&r.KoppaMode, &r.Transform, &r.Propagation, &r.TriggerMap, &r.Oracle, &r.Steps,
			&startedAt, &durationMs,
			&uNum, &uDen, &bNum, &bDen, &kNum, &kDen,
			&r.FinalRatio, &r.Target, &r.FinalError, &r.EmissionCount, &converged, &errText,
		); err != nil {
			return nil, fmt.Errorf("archive: scan run: %w", err)
		}
		r.KoppaSeed = koppaSeed.String
		r.Error = errText.String
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.FinalUpsilon = uNum + "/" + uDen
		r.FinalBeta = bNum + "/" + bDen
		r.FinalKoppa = kNum + "/" + kDen
		r.Converged = converged != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// SeriesCounts reports how many snapshot and emission rows a run stored.
func (s *Store) SeriesCounts(runID string) (snapshots, emissions int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.db.QueryRow(`SELECT COUNT(*) FROM snapshots WHERE run_id = ?`, runID).Scan(&snapshots); err != nil {
		return 0, 0, fmt.Errorf("archive: count snapshots: %w", err)
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM emissions WHERE run_id = ?`, runID).Scan(&emissions); err != nil {
		return 0, 0, fmt.Errorf("archive: count emissions: %w", err)
	}
	return snapshots, emissions, nil
}
