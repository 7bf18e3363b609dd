package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/novelforge/pkg/services"
)

// UpdateBookChapter upserts a chapter by section_index; the child
// table's primary key (session_id, section_index) gives us the
// "replaces existing chapter with same index" + "sorted by
// section_index" invariants (spec.md §3, §8) for free, rather than
// hand-rolling filter-then-append-then-sort over a JSON array as the
// Python original does.
func (s *Store) UpdateBookChapter(ctx context.Context, sessionID, title, content string, sectionIndex int) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO book_chapters (session_id, section_index, title, content)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, section_index) DO UPDATE SET title = EXCLUDED.title, content = EXCLUDED.content
		`, sessionID, sectionIndex, title, content)
		if err != nil {
			return fmt.Errorf("%w: upsert chapter: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}
