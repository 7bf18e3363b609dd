package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

// Save does a whole-document replace of the mutable, non-merge-safe
// fields and bumps updated_at (spec.md §4.1 "save(session) -> Session").
// Field-scoped mutators remain the preferred path for concurrent
// phases; Save exists for callers (e.g. admin tooling) that already
// hold a freshly-loaded, exclusively-owned Session.
func (s *Store) Save(ctx context.Context, sess *model.Session) (*model.Session, error) {
	formJSON, err := encodeJSON(sess.FormData)
	if err != nil {
		return nil, err
	}
	answersJSON, err := encodeJSON(sess.QuestionAnswers)
	if err != nil {
		return nil, err
	}
	questionsJSON, err := encodeJSON(sess.GeneratedQuestions)
	if err != nil {
		return nil, err
	}
	draftJSON, err := encodeJSON(sess.Draft)
	if err != nil {
		return nil, err
	}
	outlineJSON, err := encodeJSON(sess.Outline)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET form_data=$2, question_answers=$3, generated_questions=$4, draft=$5, outline=$6, updated_at=$7
		WHERE session_id = $1
	`, sess.SessionID, formJSON, answersJSON, questionsJSON, draftJSON, outlineJSON, now)
	if err != nil {
		return nil, fmt.Errorf("%w: save session: %v", services.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, services.ErrNotFound
	}
	sess.UpdatedAt = now
	return sess, nil
}

// Projection controls whether List elides heavy fields for library
// view performance (spec.md §4.1).
type Projection int

const (
	ProjectionFull Projection = iota
	ProjectionLight
)

// List returns sessions for a user (or all, if userID is nil) matching
// filters. With ProjectionLight, book_chapters and the outline text are
// elided.
func (s *Store) List(ctx context.Context, userID *string, filters ListFilters, projection Projection) (map[string]*model.Session, error) {
	query := `SELECT session_id FROM sessions WHERE ($1::uuid IS NULL OR user_id = $1)`
	args := []any{userID}

	if filters.LLMModel != "" {
		query += fmt.Sprintf(` AND form_data->>'llm_model' = $%d`, len(args)+1)
		args = append(args, filters.LLMModel)
	}
	if filters.Genre != "" {
		query += fmt.Sprintf(` AND form_data->>'genre' = $%d`, len(args)+1)
		args = append(args, filters.Genre)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", services.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan session id: %v", services.ErrStoreUnavailable, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make(map[string]*model.Session, len(ids))
	for _, id := range ids {
		var sess *model.Session
		if projection == ProjectionLight {
			sess, err = s.fetchLight(ctx, id)
		} else {
			sess, err = s.fetch(ctx, s.pool, id)
		}
		if err != nil {
			return nil, err
		}
		if filters.Status != "" && sess.DerivedStatus() != filters.Status {
			continue
		}
		result[id] = sess
	}
	return result, nil
}

// fetchLight loads only the fields LibraryProjector needs, skipping the
// (potentially large) outline text and chapter bodies.
func (s *Store) fetchLight(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, user_id, form_data, draft, critique, critique_status,
		       writing_progress, real_cost_eur, cover_image_path,
		       writing_start_time, writing_end_time, created_at, updated_at
		FROM sessions WHERE session_id = $1
	`, sessionID)

	var (
		sess                                                model.Session
		userID                                               *string
		formRaw, critiqueRaw, wProgRaw                        []byte
		draftRaw                                              []byte
		critiqueStatus                                        string
	)
	err := row.Scan(&sess.SessionID, &userID, &formRaw, &draftRaw, &critiqueRaw, &critiqueStatus,
		&wProgRaw, &sess.RealCostEUR, &sess.CoverImagePath,
		&sess.WritingStartTime, &sess.WritingEndTime, &sess.CreatedAt, &sess.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch session (light): %v", services.ErrStoreUnavailable, err)
	}
	sess.UserID = userID
	sess.CritiqueStatus = model.CritiqueStatus(critiqueStatus)
	if err := decodeAll(
		jsonField{formRaw, &sess.FormData},
		jsonField{draftRaw, &sess.Draft},
		jsonField{critiqueRaw, &sess.Critique},
		jsonField{wProgRaw, &sess.WritingProgress},
	); err != nil {
		return nil, fmt.Errorf("%w: decode session (light): %v", services.ErrStoreUnavailable, err)
	}

	var chapterCount int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM book_chapters WHERE session_id = $1`, sessionID).Scan(&chapterCount); err != nil {
		return nil, fmt.Errorf("%w: count chapters: %v", services.ErrStoreUnavailable, err)
	}
	sess.BookChapters = make([]model.BookChapter, chapterCount)
	return &sess, nil
}
