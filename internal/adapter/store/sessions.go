package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

const sessionColumns = `id, project_id, name, source, keyword_count, aio_count, created_at`

const refreshCountsQuery = `UPDATE check_sessions SET
	keyword_count = (SELECT COUNT(*) FROM keyword_results WHERE session_id = $1),
	aio_count = (SELECT COUNT(*) FROM keyword_results WHERE session_id = $1 AND has_ai_overview)
WHERE id = $1
RETURNING keyword_count, aio_count`

func scanSession(row scanner) (domain.CheckSession, error) {
	var cs domain.CheckSession
	var name sql.NullString
	err := row.Scan(&cs.ID, &cs.ProjectID, &name, &cs.Source, &cs.KeywordCount, &cs.AIOCount, &cs.CreatedAt)
	if name.Valid {
		cs.Name = &name.String
	}
	return cs, err
}

// CreateSession inserts a session and its keyword rows in one transaction.
// A zero CreatedAt uses the database clock.
func (s *PostgresStore) CreateSession(ctx context.Context, cs *domain.CheckSession, rows []domain.KeywordRow) (*domain.CheckSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create session: %w", err)
	}
	defer tx.Rollback()

	var createdAt sql.NullTime
	if !cs.CreatedAt.IsZero() {
		createdAt = sql.NullTime{Time: cs.CreatedAt, Valid: true}
	}

	query := `INSERT INTO check_sessions (project_id, name, source, created_at)
	          VALUES ($1, $2, $3, COALESCE($4, NOW()))
	          RETURNING ` + sessionColumns
	created, err := scanSession(tx.QueryRowContext(ctx, query, cs.ProjectID, cs.Name, cs.Source, createdAt))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO keyword_results
	          (session_id, position, keyword, has_ai_overview, aio_markdown, aio_references)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (session_id, keyword) DO UPDATE SET
	              has_ai_overview = EXCLUDED.has_ai_overview,
	              aio_markdown = EXCLUDED.aio_markdown,
	              aio_references = EXCLUDED.aio_references`)
	if err != nil {
		return nil, fmt.Errorf("prepare keyword insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, created.ID, i, r.Keyword, r.HasAIOverview, r.AIOMarkdown, r.AIOReferences); err != nil {
			return nil, fmt.Errorf("insert keyword %q: %w", r.Keyword, err)
		}
	}

	if err := tx.QueryRowContext(ctx, refreshCountsQuery, created.ID).Scan(&created.KeywordCount, &created.AIOCount); err != nil {
		return nil, fmt.Errorf("refresh session counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create session: %w", err)
	}
	return &created, nil
}

// GetSession returns a session by ID.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*domain.CheckSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM check_sessions WHERE id = $1`
	cs, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get session: %w", notFound(err, port.ErrSessionNotFound))
	}
	return &cs, nil
}

// ListSessions returns a project's sessions newest first. limit <= 0 returns all.
func (s *PostgresStore) ListSessions(ctx context.Context, projectID string, limit int) ([]domain.CheckSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM check_sessions WHERE project_id = $1 ORDER BY created_at DESC, id`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.CheckSession{}
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

// RenameSession sets or clears the display name of a session.
func (s *PostgresStore) RenameSession(ctx context.Context, id string, name *string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE check_sessions SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return expectAffected(res, port.ErrSessionNotFound)
}

// DeleteSession removes a session and its keyword rows.
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM check_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return expectAffected(res, port.ErrSessionNotFound)
}

const keywordColumns = `keyword, has_ai_overview, aio_markdown, aio_references`

func scanKeywordRow(row scanner) (domain.KeywordRow, error) {
	var kr domain.KeywordRow
	var markdown, refs sql.NullString
	err := row.Scan(&kr.Keyword, &kr.HasAIOverview, &markdown, &refs)
	if markdown.Valid {
		kr.AIOMarkdown = &markdown.String
	}
	if refs.Valid {
		kr.AIOReferences = &refs.String
	}
	return kr, err
}

// ListKeywordRows returns a session's rows in insertion order.
func (s *PostgresStore) ListKeywordRows(ctx context.Context, sessionID string) ([]domain.KeywordRow, error) {
	query := `SELECT ` + keywordColumns + ` FROM keyword_results WHERE session_id = $1 ORDER BY position, id`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list keyword rows: %w", err)
	}
	defer rows.Close()

	out := []domain.KeywordRow{}
	for rows.Next() {
		kr, err := scanKeywordRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keyword row: %w", err)
		}
		out = append(out, kr)
	}
	return out, rows.Err()
}

// GetKeywordRow returns one keyword of a session.
func (s *PostgresStore) GetKeywordRow(ctx context.Context, sessionID, keyword string) (*domain.KeywordRow, error) {
	query := `SELECT ` + keywordColumns + ` FROM keyword_results WHERE session_id = $1 AND keyword = $2`
	kr, err := scanKeywordRow(s.db.QueryRowContext(ctx, query, sessionID, keyword))
	if err != nil {
		return nil, fmt.Errorf("get keyword row: %w", notFound(err, port.ErrKeywordNotFound))
	}
	return &kr, nil
}

// DeleteKeywordRow removes one keyword and refreshes the session counts.
func (s *PostgresStore) DeleteKeywordRow(ctx context.Context, sessionID, keyword string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete keyword: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM keyword_results WHERE session_id = $1 AND keyword = $2`, sessionID, keyword)
	if err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	if err := expectAffected(res, port.ErrKeywordNotFound); err != nil {
		return err
	}

	var keywords, aio int
	if err := tx.QueryRowContext(ctx, refreshCountsQuery, sessionID).Scan(&keywords, &aio); err != nil {
		return fmt.Errorf("refresh session counts: %w", err)
	}
	return tx.Commit()
}
