// Package session implements C1 SessionStore (spec.md §4.1): the
// persistent store of the per-book Session aggregate, with merge-safe
// sub-document updates, ownership checks, and projection queries.
//
// Grounded on original_source/backend/app/agent/session_store.py for
// exact mutator semantics, adapted from an in-process Python dict to
// pgx/v5 against Postgres per SPEC_FULL.md §2.1 (ent dropped: no
// generated client available without running go generate).
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novelforge/novelforge/pkg/database"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

// Store is the Postgres-backed SessionStore.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store over an already-migrated pool.
func New(client *database.Client) *Store {
	return &Store{pool: client.Pool}
}

// ListFilters narrows Store.List's results (spec.md §4.1 query).
type ListFilters struct {
	Status   model.DerivedStatus
	LLMModel string
	Genre    string
}

// Create inserts a new Session and returns it.
func (s *Store) Create(ctx context.Context, sessionID string, form model.FormData, answers []model.QuestionAnswer, userID *string) (*model.Session, error) {
	now := time.Now().UTC()
	sess := &model.Session{
		SessionID:       sessionID,
		UserID:          userID,
		FormData:        form,
		QuestionAnswers: answers,
		CritiqueStatus:  model.CritiqueAbsent,
		TokenUsage:      model.TokenUsage{Phases: map[model.PhaseKey]*model.PhaseTokenUsage{}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	formJSON, _ := database.MarshalJSONB(form)
	answersJSON, _ := database.MarshalJSONB(answers)
	draftJSON, _ := database.MarshalJSONB(sess.Draft)
	outlineJSON, _ := database.MarshalJSONB(sess.Outline)
	tokenJSON, _ := database.MarshalJSONB(sess.TokenUsage)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, form_data, question_answers, draft, outline, critique_status, token_usage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, sessionID, userID, formJSON, answersJSON, draftJSON, outlineJSON, string(sess.CritiqueStatus), tokenJSON, now)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", services.ErrStoreUnavailable, err)
	}
	return sess, nil
}

// Get fetches a Session, enforcing ownership unless the session has no
// owner (spec.md §3 "Ownership").
func (s *Store) Get(ctx context.Context, sessionID string, userID *string) (*model.Session, error) {
	sess, err := s.fetch(ctx, s.pool, sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkOwnership(sess, userID); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSystem fetches a Session without an ownership check. It is for
// internal callers that are not acting on behalf of a particular
// request's caller — the background generation task and its
// sub-stages, which run detached from the request that started them
// (spec.md §4.5) — not for anything reachable from the API layer.
func (s *Store) GetSystem(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.fetch(ctx, s.pool, sessionID)
}

func checkOwnership(sess *model.Session, userID *string) error {
	if sess.UserID == nil {
		return nil // legacy, unowned sessions are globally readable
	}
	if userID == nil || *userID != *sess.UserID {
		return services.ErrUnauthorized
	}
	return nil
}

type rowScanner interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) fetch(ctx context.Context, q rowScanner, sessionID string) (*model.Session, error) {
	row := q.QueryRow(ctx, `
		SELECT session_id, user_id, form_data, question_answers, generated_questions, draft, outline,
		       cover_image_path, critique, critique_status, critique_error,
		       questions_progress, draft_progress, outline_progress, writing_progress,
		       writing_start_time, writing_end_time, chapter_start_time, chapter_timings,
		       token_usage, real_cost_eur, created_at, updated_at
		FROM sessions WHERE session_id = $1
	`, sessionID)

	var (
		sess                                                      model.Session
		userID                                                    *string
		formRaw, answersRaw, questionsRaw, draftRaw, outlineRaw   []byte
		critiqueRaw, qProgRaw, dProgRaw, oProgRaw, wProgRaw       []byte
		chapterTimingsRaw, tokenRaw                               []byte
		critiqueStatus                                             string
	)

	err := row.Scan(
		&sess.SessionID, &userID, &formRaw, &answersRaw, &questionsRaw, &draftRaw, &outlineRaw,
		&sess.CoverImagePath, &critiqueRaw, &critiqueStatus, &sess.CritiqueError,
		&qProgRaw, &dProgRaw, &oProgRaw, &wProgRaw,
		&sess.WritingStartTime, &sess.WritingEndTime, &sess.ChapterStartTime, &chapterTimingsRaw,
		&tokenRaw, &sess.RealCostEUR, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch session: %v", services.ErrStoreUnavailable, err)
	}

	sess.UserID = userID
	sess.CritiqueStatus = model.CritiqueStatus(critiqueStatus)
	if err := decodeAll(
		jsonField{formRaw, &sess.FormData},
		jsonField{answersRaw, &sess.QuestionAnswers},
		jsonField{questionsRaw, &sess.GeneratedQuestions},
		jsonField{draftRaw, &sess.Draft},
		jsonField{outlineRaw, &sess.Outline},
		jsonField{critiqueRaw, &sess.Critique},
		jsonField{qProgRaw, &sess.QuestionsProgress},
		jsonField{dProgRaw, &sess.DraftProgress},
		jsonField{oProgRaw, &sess.OutlineProgress},
		jsonField{wProgRaw, &sess.WritingProgress},
		jsonField{chapterTimingsRaw, &sess.ChapterTimings},
		jsonField{tokenRaw, &sess.TokenUsage},
	); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", services.ErrStoreUnavailable, err)
	}

	chapters, err := s.fetchChapters(ctx, q, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.BookChapters = chapters

	return &sess, nil
}

type jsonField struct {
	raw []byte
	dst any
}

func decodeAll(fields ...jsonField) error {
	for _, f := range fields {
		if err := database.UnmarshalJSONB(f.raw, f.dst); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) fetchChapters(ctx context.Context, q rowScanner, sessionID string) ([]model.BookChapter, error) {
	pool, ok := q.(*pgxpool.Pool)
	var rows pgx.Rows
	var err error
	const query = `SELECT title, content, section_index FROM book_chapters WHERE session_id = $1 ORDER BY section_index`
	if ok {
		rows, err = pool.Query(ctx, query, sessionID)
	} else if tx, ok := q.(pgx.Tx); ok {
		rows, err = tx.Query(ctx, query, sessionID)
	} else {
		return nil, fmt.Errorf("%w: unsupported query executor", services.ErrStoreUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch chapters: %v", services.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var chapters []model.BookChapter
	for rows.Next() {
		var c model.BookChapter
		if err := rows.Scan(&c.Title, &c.Content, &c.SectionIndex); err != nil {
			return nil, fmt.Errorf("%w: scan chapter: %v", services.ErrStoreUnavailable, err)
		}
		chapters = append(chapters, c)
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].SectionIndex < chapters[j].SectionIndex })
	return chapters, rows.Err()
}

// Delete removes a Session and all its chapters (cascade).
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("%w: delete session: %v", services.ErrStoreUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}

// NewSessionID generates an opaque 128-bit session identifier
// (spec.md §3).
func NewSessionID() string {
	return uuid.NewString()
}

// withTx runs fn inside a transaction, locking the session row with
// SELECT ... FOR UPDATE so merge-safe mutators never race each other
// (spec.md §5 "load -> modify -> persist" discipline).
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", services.ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit tx: %v", services.ErrStoreUnavailable, err)
	}
	return nil
}

// lockSession selects the target row FOR UPDATE within tx, failing with
// ErrNotFound if it does not exist.
func lockSession(ctx context.Context, tx pgx.Tx, sessionID string) error {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE session_id = $1 FOR UPDATE)`, sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: lock session: %v", services.ErrStoreUnavailable, err)
	}
	if !exists {
		return services.ErrNotFound
	}
	return nil
}

// decodeColumn is a small helper mutators use to read one jsonb column
// under the row lock already held by tx.
func decodeColumn(ctx context.Context, tx pgx.Tx, sessionID, column string, dst any) error {
	var raw []byte
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE session_id = $1`, column)
	if err := tx.QueryRow(ctx, query, sessionID).Scan(&raw); err != nil {
		return fmt.Errorf("%w: read %s: %v", services.ErrStoreUnavailable, column, err)
	}
	return database.UnmarshalJSONB(raw, dst)
}

func encodeJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
