// Package store is the Postgres-backed side of the pipeline: the read-only
// exemplar dataset and the append-only run log. All query parameters are
// bound, never interpolated into SQL text.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/retainloop/churn-triage-pipeline/internal/config"
)

// Exemplar is one stored (prompt, ideal response) pair used as a few-shot
// demonstration. Owned by the store; the pipeline only reads it.
type Exemplar struct {
	ID            string
	Topic         string
	Sentiment     string
	Rating        int
	Prompt        string
	IdealResponse string
	CreatedAt     time.Time
}

// Review is a full dataset row, used by the seeder. The exemplar columns
// are a subset of it.
type Review struct {
	ID               string
	Platform         string
	Store            string
	AuthorName       string
	Rating           int
	ReviewText       string
	Topic            string
	Sentiment        string
	FrustrationLevel string
	ChurnRisk        string
	CreatedAt        time.Time
	Prompt           string
	IdealResponse    string
}

// RunRecord is one row of the append-only run log.
type RunRecord struct {
	RunID            string
	Message          string
	Rating           int
	Topic            string
	Sentiment        string
	FrustrationLevel string
	ChurnRiskLabel   string
	HeuristicScore   float64
	Verdict          string
	Decision         string
	Reply            string
	Errors           []string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Store wraps a pgx connection pool. The pool is safe for concurrent runs.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres. The connection string must request encrypted
// transport; anything weaker fails here, before any run starts.
func New(ctx context.Context, connString string) (*Store, error) {
	if err := config.RequireTLS(connString); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool (used by the demo binaries).
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaDDL = `
create table if not exists reviews (
  review_id uuid primary key,
  platform text,
  store text,
  author_name text,
  rating int,
  review_text text,
  topic text,
  sentiment text,
  frustration_level text,
  churn_risk text,
  created_at timestamptz,
  prompt text,
  ideal_response text
);

create index if not exists idx_reviews_topic on reviews(topic);
create index if not exists idx_reviews_created on reviews(created_at);

create table if not exists pipeline_runs (
  run_id uuid primary key,
  message text,
  rating int,
  topic text,
  sentiment text,
  frustration_level text,
  churn_risk text,
  heuristic_score double precision,
  verdict text,
  decision text,
  reply text,
  errors text[],
  started_at timestamptz,
  finished_at timestamptz,
  created_at timestamptz default now()
);

create index if not exists idx_runs_created on pipeline_runs(created_at);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// FetchExemplars returns up to limit exemplars matching topic, and
// sentiment when it is non-empty. Ordering is deterministic: most recent
// first, review id as tie-break. No matches is an empty slice, not an error.
func (s *Store) FetchExemplars(ctx context.Context, topic, sentiment string, limit int) ([]Exemplar, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		select review_id, topic, sentiment, rating, prompt, ideal_response, created_at
		from reviews
		where topic = $1
		order by created_at desc, review_id desc
		limit $2`
	args := []any{topic, limit}
	if sentiment != "" {
		query = `
			select review_id, topic, sentiment, rating, prompt, ideal_response, created_at
			from reviews
			where topic = $1 and sentiment = $2
			order by created_at desc, review_id desc
			limit $3`
		args = []any{topic, sentiment, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch exemplars: %w", err)
	}
	defer rows.Close()

	var out []Exemplar
	for rows.Next() {
		var e Exemplar
		if err := rows.Scan(&e.ID, &e.Topic, &e.Sentiment, &e.Rating, &e.Prompt, &e.IdealResponse, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exemplar: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch exemplars: %w", err)
	}
	return out, nil
}

// InsertReviews bulk-inserts dataset rows, skipping duplicates by id.
func (s *Store) InsertReviews(ctx context.Context, reviews []Review) (int, error) {
	batch := &pgx.Batch{}
	for _, r := range reviews {
		batch.Queue(`
			insert into reviews
			  (review_id, platform, store, author_name, rating, review_text,
			   topic, sentiment, frustration_level, churn_risk, created_at,
			   prompt, ideal_response)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			on conflict (review_id) do nothing`,
			r.ID, r.Platform, r.Store, r.AuthorName, r.Rating, r.ReviewText,
			r.Topic, r.Sentiment, r.FrustrationLevel, r.ChurnRisk, r.CreatedAt,
			r.Prompt, r.IdealResponse)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range reviews {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert review: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// runColumns is the column list shared by the append and read-back paths
// so the two cannot drift apart.
const runColumns = `run_id, message, rating, topic, sentiment, frustration_level, ` +
	`churn_risk, heuristic_score, verdict, decision, reply, errors, ` +
	`started_at, finished_at`

const insertRunSQL = `insert into pipeline_runs (` + runColumns + `)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

// LogRun appends one run record to the audit table.
func (s *Store) LogRun(ctx context.Context, rec RunRecord) error {
	_, err := s.pool.Exec(ctx, insertRunSQL,
		rec.RunID, rec.Message, rec.Rating, rec.Topic, rec.Sentiment,
		rec.FrustrationLevel, rec.ChurnRiskLabel, rec.HeuristicScore,
		rec.Verdict, rec.Decision, rec.Reply, rec.Errors,
		rec.StartedAt, rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// LatestRuns reads back the most recent run records, newest first.
func (s *Store) LatestRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.pool.Query(ctx, `select `+runColumns+`
		from pipeline_runs
		order by created_at desc, run_id desc
		limit $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("latest runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.Message, &r.Rating, &r.Topic, &r.Sentiment,
			&r.FrustrationLevel, &r.ChurnRiskLabel, &r.HeuristicScore,
			&r.Verdict, &r.Decision, &r.Reply, &r.Errors,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest runs: %w", err)
	}
	return out, nil
}
