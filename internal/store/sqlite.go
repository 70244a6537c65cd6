package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mvelez/jobdeck/internal/model"
	"github.com/mvelez/jobdeck/internal/settings"
)

// SQLiteStore persists postings, generation runs, and the settings record in
// a single SQLite database. It implements model.PostingStore,
// model.RunStore, and settings.Store.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS postings (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	dedup_key     TEXT NOT NULL UNIQUE,
	title         TEXT NOT NULL,
	company       TEXT NOT NULL,
	location      TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL DEFAULT '',
	raw_ref       TEXT NOT NULL DEFAULT '',
	discovered_at DATETIME NOT NULL,
	stage         TEXT NOT NULL,
	visa_sponsor  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_postings_stage ON postings(stage);

CREATE TABLE IF NOT EXISTS runs (
	posting_id  TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	status      TEXT NOT NULL,
	generation  INTEGER NOT NULL,
	transcript  TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	ended_at    DATETIME
);

CREATE TABLE IF NOT EXISTS app_settings (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures the
// schema exists, and seeds an empty settings record on first run.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Settings record exists from first run onward.
	seed, _ := json.Marshal(settings.AppSettings{})
	if _, err := db.Exec(
		`INSERT INTO app_settings (id, data) VALUES (1, ?) ON CONFLICT (id) DO NOTHING`,
		string(seed),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding settings: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ─── PostingStore ────────────────────────────────────────────────────────────

const postingColumns = `id, source, dedup_key, title, company, location, description, url, raw_ref, discovered_at, stage, visa_sponsor`

func scanPosting(row interface{ Scan(...any) error }) (model.Posting, error) {
	var (
		p       model.Posting
		source  string
		stage   string
		sponsor sql.NullBool
	)
	err := row.Scan(
		&p.ID, &source, &p.DedupKey, &p.Title, &p.Company, &p.Location,
		&p.Description, &p.URL, &p.RawRef, &p.DiscoveredAt, &stage, &sponsor,
	)
	if err != nil {
		return model.Posting{}, err
	}
	p.Source = model.SourceID(source)
	p.Stage = model.Stage(stage)
	if sponsor.Valid {
		v := sponsor.Bool
		p.VisaSponsor = &v
	}
	return p, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Posting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE id = ?`, id)
	p, err := scanPosting(row)
	if err == sql.ErrNoRows {
		return model.Posting{}, model.ErrPostingNotFound
	}
	if err != nil {
		return model.Posting{}, fmt.Errorf("getting posting %s: %w", id, err)
	}
	return p, nil
}

func (s *SQLiteStore) GetByDedupKey(ctx context.Context, key string) (model.Posting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE dedup_key = ?`, key)
	p, err := scanPosting(row)
	if err == sql.ErrNoRows {
		return model.Posting{}, model.ErrPostingNotFound
	}
	if err != nil {
		return model.Posting{}, fmt.Errorf("getting posting by dedup key: %w", err)
	}
	return p, nil
}

// Put upserts the full posting row. Stage changes must go through
// CompareAndSetStage; Put is for creation and non-stage field updates.
func (s *SQLiteStore) Put(ctx context.Context, p model.Posting) error {
	var sponsor sql.NullBool
	if p.VisaSponsor != nil {
		sponsor = sql.NullBool{Bool: *p.VisaSponsor, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO postings (`+postingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			company = excluded.company,
			location = excluded.location,
			description = excluded.description,
			url = excluded.url,
			raw_ref = excluded.raw_ref,
			visa_sponsor = excluded.visa_sponsor`,
		p.ID, string(p.Source), p.DedupKey, p.Title, p.Company, p.Location,
		p.Description, p.URL, p.RawRef, p.DiscoveredAt, string(p.Stage), sponsor,
	)
	if err != nil {
		return fmt.Errorf("putting posting %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListByStage(ctx context.Context, stage model.Stage) ([]model.Posting, error) {
	query := `SELECT ` + postingColumns + ` FROM postings ORDER BY discovered_at DESC`
	args := []any{}
	if stage != model.StageAll {
		query = `SELECT ` + postingColumns + ` FROM postings WHERE stage = ? ORDER BY discovered_at DESC`
		args = append(args, string(stage))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing postings by stage %s: %w", stage, err)
	}
	defer rows.Close()

	var out []model.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning posting row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CompareAndSetStage moves id from expected to next in one statement. The
// WHERE clause on the current stage makes the check-and-write atomic; a
// stale expectation updates zero rows and returns false with no mutation.
func (s *SQLiteStore) CompareAndSetStage(ctx context.Context, id string, expected, next model.Stage) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE postings SET stage = ? WHERE id = ? AND stage = ?`,
		string(next), id, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("compare-and-set stage for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("compare-and-set stage for %s: %w", id, err)
	}
	if n == 1 {
		return true, nil
	}

	// Distinguish a lost race from a missing posting.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM postings WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, model.ErrPostingNotFound
	}
	if err != nil {
		return false, fmt.Errorf("compare-and-set stage for %s: %w", id, err)
	}
	return false, nil
}

// ─── RunStore ────────────────────────────────────────────────────────────────

// SaveRun upserts the latest run for a posting. Superseded runs are
// overwritten; the transcript is stored joined.
func (s *SQLiteStore) SaveRun(ctx context.Context, run model.GenerationRun) error {
	var endedAt any
	if run.EndedAt != nil {
		endedAt = *run.EndedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (posting_id, id, status, generation, transcript, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (posting_id) DO UPDATE SET
			id = excluded.id,
			status = excluded.status,
			generation = excluded.generation,
			transcript = excluded.transcript,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at`,
		run.PostingID, run.ID, string(run.Status), run.Generation,
		run.Transcript(), run.StartedAt, endedAt,
	)
	if err != nil {
		return fmt.Errorf("saving run for posting %s: %w", run.PostingID, err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, postingID string) (model.GenerationRun, error) {
	var (
		run        model.GenerationRun
		status     string
		transcript string
		endedAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT posting_id, id, status, generation, transcript, started_at, ended_at
		FROM runs WHERE posting_id = ?`, postingID,
	).Scan(&run.PostingID, &run.ID, &status, &run.Generation, &transcript, &run.StartedAt, &endedAt)
	if err == sql.ErrNoRows {
		return model.GenerationRun{}, model.ErrRunNotFound
	}
	if err != nil {
		return model.GenerationRun{}, fmt.Errorf("getting run for posting %s: %w", postingID, err)
	}
	run.Status = model.RunStatus(status)
	if transcript != "" {
		run.Chunks = []string{transcript}
	}
	if endedAt.Valid {
		t := endedAt.Time
		run.EndedAt = &t
	}
	return run, nil
}

// ─── settings.Store ──────────────────────────────────────────────────────────

func (s *SQLiteStore) GetSettings(ctx context.Context) (settings.AppSettings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM app_settings WHERE id = 1`).Scan(&data)
	if err != nil {
		return settings.AppSettings{}, fmt.Errorf("getting settings: %w", err)
	}
	var out settings.AppSettings
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return settings.AppSettings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return out, nil
}

// UpdateSettings replaces the settings record in a single statement. The
// caller is expected to have validated the value via settings.Normalize.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, v settings.AppSettings) (settings.AppSettings, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return settings.AppSettings{}, fmt.Errorf("encoding settings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE app_settings SET data = ? WHERE id = 1`, string(data),
	); err != nil {
		return settings.AppSettings{}, fmt.Errorf("updating settings: %w", err)
	}
	return v, nil
}

// settingsStore adapts SQLiteStore to the settings.Store interface.
type settingsStore struct{ s *SQLiteStore }

// Settings returns a settings.Store view over the database.
func (s *SQLiteStore) Settings() settings.Store { return settingsStore{s} }

func (a settingsStore) Get(ctx context.Context) (settings.AppSettings, error) {
	return a.s.GetSettings(ctx)
}

func (a settingsStore) Update(ctx context.Context, v settings.AppSettings) (settings.AppSettings, error) {
	return a.s.UpdateSettings(ctx, v)
}

var _ model.PostingStore = (*SQLiteStore)(nil)
var _ model.RunStore = (*SQLiteStore)(nil)
