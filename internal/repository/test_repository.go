package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"versus-be/internal/domain"
	"versus-be/pkg/database"

	"github.com/jackc/pgx/v5"
)

// PostgresTestRepository stores each test as one JSONB document guarded by a
// version column. A handful of columns are mirrored out of the document for
// filtering and sorting; the document itself is the source of truth.
type PostgresTestRepository struct {
	db *database.PostgresDB
}

func NewTestRepository(db *database.PostgresDB) *PostgresTestRepository {
	return &PostgresTestRepository{db: db}
}

func (r *PostgresTestRepository) Create(ctx context.Context, test *domain.Test) error {
	test.CreatedAt = time.Now().UTC()
	test.UpdatedAt = test.CreatedAt
	doc, err := json.Marshal(test)
	if err != nil {
		return fmt.Errorf("failed to encode test document: %w", err)
	}

	query := `
		INSERT INTO tests (id, slug, category_id, is_active, trend, popular, total_votes, end_date, document, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		test.ID,
		test.Slug,
		test.CategoryID,
		test.IsActive,
		test.Trend,
		test.Popular,
		test.TotalVotes,
		test.EndDate,
		doc,
		test.CreatedAt,
		test.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}
	return nil
}

func (r *PostgresTestRepository) Get(ctx context.Context, id string) (*domain.Test, error) {
	test, _, err := r.getWithVersion(ctx, id)
	return test, err
}

func (r *PostgresTestRepository) GetBySlug(ctx context.Context, slug string) (*domain.Test, error) {
	var doc []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT document FROM tests WHERE slug = $1`, slug).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test by slug: %w", err)
	}
	return decodeTest(doc)
}

func (r *PostgresTestRepository) getWithVersion(ctx context.Context, id string) (*domain.Test, int64, error) {
	var (
		doc     []byte
		version int64
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT document, version FROM tests WHERE id = $1`, id).Scan(&doc, &version)
	if err == pgx.ErrNoRows {
		return nil, 0, domain.ErrTestNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get test: %w", err)
	}
	test, err := decodeTest(doc)
	if err != nil {
		return nil, 0, err
	}
	return test, version, nil
}

// Update runs one compare-and-swap cycle. The caller's updateFn mutates the
// decoded document; the write lands only if no concurrent mutation bumped the
// version in between. Losing the race returns ErrVersionConflict unwrapped so
// the service layer can retry with a fresh read.
func (r *PostgresTestRepository) Update(ctx context.Context, id string, updateFn func(test *domain.Test) error) error {
	test, version, err := r.getWithVersion(ctx, id)
	if err != nil {
		return err
	}

	if err := updateFn(test); err != nil {
		return err
	}
	test.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(test)
	if err != nil {
		return fmt.Errorf("failed to encode test document: %w", err)
	}

	query := `
		UPDATE tests
		SET slug = $3, category_id = $4, is_active = $5, trend = $6, popular = $7,
		    total_votes = $8, end_date = $9, document = $10, version = version + 1, updated_at = $11
		WHERE id = $1 AND version = $2
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		id,
		version,
		test.Slug,
		test.CategoryID,
		test.IsActive,
		test.Trend,
		test.Popular,
		test.TotalVotes,
		test.EndDate,
		doc,
		test.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *PostgresTestRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTestNotFound
	}
	return nil
}

func (r *PostgresTestRepository) List(ctx context.Context, filter ListFilter) ([]*domain.Test, int, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	addClause := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.CategoryID != "" {
		addClause("category_id = $%d", filter.CategoryID)
	}
	if filter.IsActive != nil {
		addClause("is_active = $%d", *filter.IsActive)
	}
	if filter.Trend != nil {
		addClause("trend = $%d", *filter.Trend)
	}
	if filter.Popular != nil {
		addClause("popular = $%d", *filter.Popular)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM tests"+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tests: %w", err)
	}

	sortBy := "created_at"
	if filter.SortBy == "total_votes" {
		sortBy = "total_votes"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	query := fmt.Sprintf("SELECT document FROM tests%s ORDER BY %s %s, created_at DESC LIMIT $%d OFFSET $%d",
		whereSQL, sortBy, direction, len(args)-1, len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	tests := make([]*domain.Test, 0, limit)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, 0, fmt.Errorf("failed to scan test row: %w", err)
		}
		test, err := decodeTest(doc)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, test)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read test rows: %w", err)
	}
	return tests, total, nil
}

func (r *PostgresTestRepository) ListByParticipant(ctx context.Context, participantID string) ([]*domain.Test, error) {
	match, err := json.Marshal([]map[string]string{{"participant_id": participantID}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode participant filter: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT document FROM tests WHERE document->'vote_sessions' @> $1 ORDER BY updated_at DESC`, match)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests by participant: %w", err)
	}
	defer rows.Close()

	var tests []*domain.Test
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan test row: %w", err)
		}
		test, err := decodeTest(doc)
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read test rows: %w", err)
	}
	return tests, nil
}

// ExpireDue flips is_active off for tests past their end date, in both the
// mirror column and the document, bumping the version so in-flight CAS
// writers lose cleanly.
func (r *PostgresTestRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE tests
		SET is_active = FALSE,
		    document = jsonb_set(document, '{is_active}', 'false'),
		    version = version + 1,
		    updated_at = $1
		WHERE is_active = TRUE AND end_date IS NOT NULL AND end_date <= $1
	`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire tests: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresTestRepository) ClearExpiredEndDates(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE tests
		SET end_date = NULL,
		    document = document - 'end_date',
		    version = version + 1,
		    updated_at = $1
		WHERE end_date IS NOT NULL AND end_date <= $1
	`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired end dates: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresTestRepository) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	stats := &domain.GlobalStats{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_votes), 0) FROM tests WHERE is_active = TRUE`).
		Scan(&stats.TotalTests, &stats.TotalVotes)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate global stats: %w", err)
	}
	return stats, nil
}

func decodeTest(doc []byte) (*domain.Test, error) {
	var test domain.Test
	if err := json.Unmarshal(doc, &test); err != nil {
		return nil, fmt.Errorf("failed to decode test document: %w", err)
	}
	return &test, nil
}
