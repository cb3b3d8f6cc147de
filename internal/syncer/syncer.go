// Package syncer keeps the local post store up to date with the upstream API.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"kemonocast/internal/database"
	"kemonocast/internal/domain"
)

// PostSource fetches posts from the upstream platform.
type PostSource interface {
	FetchAllPosts(ctx context.Context, service, creatorID string) ([]domain.Post, error)
	FetchPostsPage(ctx context.Context, service, creatorID string, offset int) ([]domain.Post, error)
}

type Syncer struct {
	db     *database.Database
	source PostSource
	group  singleflight.Group
	log    *slog.Logger
}

func New(db *database.Database, source PostSource, log *slog.Logger) *Syncer {
	return &Syncer{
		db:     db,
		source: source,
		log:    log,
	}
}

// Sync brings the creator's stored post set up to date and returns it,
// newest first. A creator without a completed backfill gets a full
// paginated fetch; otherwise only the first page is topped up. Concurrent
// calls for the same creator share a single upstream pass.
func (s *Syncer) Sync(
	ctx context.Context,
	service string,
	creatorID string,
) ([]domain.Post, error) {
	key := service + "/" + creatorID

	if _, err, _ := s.group.Do(key, func() (any, error) {
		return nil, s.refresh(ctx, service, creatorID)
	}); err != nil {
		return nil, err
	}

	return s.db.GetPosts(ctx, service, creatorID)
}

func (s *Syncer) refresh(ctx context.Context, service, creatorID string) error {
	backfilled, err := s.db.IsBackfillComplete(ctx, service, creatorID)
	if err != nil {
		return fmt.Errorf("check backfill state: %w", err)
	}

	if backfilled {
		return s.topUp(ctx, service, creatorID)
	}

	return s.backfill(ctx, service, creatorID)
}

// backfill paginates through the creator's whole history. The completion
// flag is set only after every page is persisted, so a failure partway
// through routes the next sync back onto this path.
func (s *Syncer) backfill(ctx context.Context, service, creatorID string) error {
	posts, err := s.source.FetchAllPosts(ctx, service, creatorID)
	if err != nil {
		return fmt.Errorf("fetch all posts: %w", err)
	}

	saved, err := s.db.SavePosts(ctx, posts)
	if err != nil {
		return fmt.Errorf("save posts: %w", err)
	}

	if err = s.db.MarkSynced(ctx, service, creatorID, true); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	s.log.InfoContext(ctx, "Backfill finished",
		"service", service,
		"creatorID", creatorID,
		"savedCount", saved)

	return nil
}

// topUp fetches only the first page, relying on the upstream's
// newest-first ordering to surface new posts there.
func (s *Syncer) topUp(ctx context.Context, service, creatorID string) error {
	posts, err := s.source.FetchPostsPage(ctx, service, creatorID, 0)
	if err != nil {
		return fmt.Errorf("fetch first page: %w", err)
	}

	saved, err := s.db.SavePosts(ctx, posts)
	if err != nil {
		return fmt.Errorf("save posts: %w", err)
	}

	if err = s.db.MarkSynced(ctx, service, creatorID, false); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	s.log.DebugContext(ctx, "Incremental sync finished",
		"service", service,
		"creatorID", creatorID,
		"savedCount", saved)

	return nil
}
