package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"GrantScanner/internal/domain"
	"GrantScanner/internal/ports"
)

const (
	proposalsTable   = "proposals"
	metricsTable     = "metrics"
	summaryMetricKey = "summary"
)

const schema = `
CREATE TABLE IF NOT EXISTS proposals (
    id                    TEXT PRIMARY KEY,
    number                INTEGER NOT NULL DEFAULT 0,
    repository            TEXT NOT NULL DEFAULT '',
    title                 TEXT NOT NULL DEFAULT '',
    body                  TEXT NOT NULL DEFAULT '',
    state                 TEXT NOT NULL DEFAULT '',
    merged                BOOLEAN NOT NULL DEFAULT FALSE,
    author                TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ,
    updated_at            TIMESTAMPTZ,
    closed_at             TIMESTAMPTZ,
    merged_at             TIMESTAMPTZ,
    labels                TEXT[] NOT NULL DEFAULT '{}',
    milestone             TEXT NOT NULL DEFAULT '',
    comments_count        INTEGER NOT NULL DEFAULT 0,
    review_comments_count INTEGER NOT NULL DEFAULT 0,
    commits_count         INTEGER NOT NULL DEFAULT 0,
    additions_count       INTEGER NOT NULL DEFAULT 0,
    deletions_count       INTEGER NOT NULL DEFAULT 0,
    changed_files_count   INTEGER NOT NULL DEFAULT 0,
    curators              TEXT[] NOT NULL DEFAULT '{}',
    category              TEXT NOT NULL,
    approval_time_days    DOUBLE PRECISION,
    milestone_count       INTEGER NOT NULL DEFAULT 0,
    bounty_amount         DOUBLE PRECISION,
    rejection_reason      TEXT,
    performance_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_stale              BOOLEAN NOT NULL DEFAULT FALSE,
    processed_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS metrics (
    metric_name  TEXT PRIMARY KEY,
    metric_value JSONB NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

var proposalColumns = []string{
	"id", "number", "repository", "title", "body", "state", "merged", "author",
	"created_at", "updated_at", "closed_at", "merged_at", "labels", "milestone",
	"comments_count", "review_comments_count", "commits_count",
	"additions_count", "deletions_count", "changed_files_count",
	"curators", "category", "approval_time_days", "milestone_count",
	"bounty_amount", "rejection_reason", "performance_score", "is_stale",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists the proposal table and metrics cache into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var (
	_ ports.ProposalRepository = (*PostgresRepository)(nil)
	_ ports.MetricsCache       = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the tables when they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveProposals upserts every proposal in a single transaction. Categories are
// overwritten on every pass, never carried over.
func (r *PostgresRepository) SaveProposals(ctx context.Context, proposals []domain.Proposal) error {
	if r.db == nil || len(proposals) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	for _, p := range proposals {
		query, args, err := upsertProposalQuery(p).ToSql()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("build upsert %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert proposal %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit proposals: %w", err)
	}
	return nil
}

// LoadProposals reads the full table ordered by repository and number.
func (r *PostgresRepository) LoadProposals(ctx context.Context) ([]domain.Proposal, error) {
	if r.db == nil {
		return []domain.Proposal{}, nil
	}

	query, args, err := selectProposalsQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}

	result := []domain.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		result = append(result, p)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// SaveMetrics stores the summary as a JSON document, replacing the previous one.
func (r *PostgresRepository) SaveMetrics(ctx context.Context, summary domain.MetricsSummary) error {
	if r.db == nil {
		return nil
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	query, args, err := upsertMetricQuery(summaryMetricKey, payload).ToSql()
	if err != nil {
		return fmt.Errorf("build metrics upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert metrics: %w", err)
	}
	return nil
}

// LoadMetrics returns the cached summary; ok is false when none was stored.
func (r *PostgresRepository) LoadMetrics(ctx context.Context) (domain.MetricsSummary, bool, error) {
	if r.db == nil {
		return domain.MetricsSummary{}, false, nil
	}

	query, args, err := selectMetricQuery(summaryMetricKey).ToSql()
	if err != nil {
		return domain.MetricsSummary{}, false, fmt.Errorf("build metrics select: %w", err)
	}

	var payload []byte
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.MetricsSummary{}, false, nil
	}
	if err != nil {
		return domain.MetricsSummary{}, false, fmt.Errorf("query metrics: %w", err)
	}

	var summary domain.MetricsSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return domain.MetricsSummary{}, false, fmt.Errorf("decode metrics: %w", err)
	}
	return summary, true, nil
}

func upsertProposalQuery(p domain.Proposal) sq.InsertBuilder {
	return psql.Insert(proposalsTable).
		Columns(proposalColumns...).
		Values(
			p.ID, p.Number, p.Repository, p.Title, p.Description, p.State, p.Merged, p.Author,
			nullTime(p.CreatedAt), nullTime(p.UpdatedAt), nullTime(p.ClosedAt), nullTime(p.MergedAt),
			pq.StringArray(nonNilStrings(p.Labels)), p.Milestone,
			p.CommentsCount, p.ReviewCommentsCount, p.CommitsCount,
			p.AdditionsCount, p.DeletionsCount, p.ChangedFilesCount,
			pq.StringArray(nonNilStrings(p.Curators)), string(p.Category), nullFloat(p.ApprovalTimeDays), p.MilestoneCount,
			nullFloat(p.BountyAmount), nullString(p.RejectionReason), p.PerformanceScore, p.IsStale,
		).
		Suffix(upsertSuffix())
}

func upsertSuffix() string {
	suffix := "ON CONFLICT (id) DO UPDATE SET "
	first := true
	for _, col := range proposalColumns {
		if col == "id" {
			continue
		}
		if !first {
			suffix += ", "
		}
		suffix += col + " = EXCLUDED." + col
		first = false
	}
	return suffix + ", processed_at = NOW()"
}

func selectProposalsQuery() sq.SelectBuilder {
	return psql.Select(proposalColumns...).
		From(proposalsTable).
		OrderBy("repository", "number", "id")
}

func upsertMetricQuery(name string, payload []byte) sq.InsertBuilder {
	return psql.Insert(metricsTable).
		Columns("metric_name", "metric_value").
		Values(name, payload).
		Suffix("ON CONFLICT (metric_name) DO UPDATE SET metric_value = EXCLUDED.metric_value, updated_at = NOW()")
}

func selectMetricQuery(name string) sq.SelectBuilder {
	return psql.Select("metric_value").
		From(metricsTable).
		Where(sq.Eq{"metric_name": name})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (domain.Proposal, error) {
	var (
		p                                domain.Proposal
		category                         string
		created, updated, closed, merged sql.NullTime
		labels, curators                 pq.StringArray
		approvalDays, bounty             sql.NullFloat64
		rejection                        sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.Number, &p.Repository, &p.Title, &p.Description, &p.State, &p.Merged, &p.Author,
		&created, &updated, &closed, &merged,
		&labels, &p.Milestone,
		&p.CommentsCount, &p.ReviewCommentsCount, &p.CommitsCount,
		&p.AdditionsCount, &p.DeletionsCount, &p.ChangedFilesCount,
		&curators, &category, &approvalDays, &p.MilestoneCount,
		&bounty, &rejection, &p.PerformanceScore, &p.IsStale,
	)
	if err != nil {
		return domain.Proposal{}, err
	}

	p.Category = domain.Category(category)
	p.CreatedAt = timePtr(created)
	p.UpdatedAt = timePtr(updated)
	p.ClosedAt = timePtr(closed)
	p.MergedAt = timePtr(merged)
	p.Labels = nonNilStrings(labels)
	p.Curators = nonNilStrings(curators)
	if approvalDays.Valid {
		p.ApprovalTimeDays = &approvalDays.Float64
	}
	if bounty.Valid {
		p.BountyAmount = &bounty.Float64
	}
	if rejection.Valid {
		p.RejectionReason = &rejection.String
	}
	return p, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
