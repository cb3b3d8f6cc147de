// Package scheduler refreshes known creators in the background so warm
// feeds stay current between requests.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"kemonocast/internal/database"
	"kemonocast/internal/syncer"
)

const refreshTimeout = 15 * time.Minute

type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	db     *database.Database
	syncer *syncer.Syncer
	spec   string
	log    *slog.Logger
}

func New(
	ctx context.Context,
	db *database.Database,
	sync *syncer.Syncer,
	spec string,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.UTC))

	return &Scheduler{
		ctx:    ctx,
		cron:   c,
		db:     db,
		syncer: sync,
		spec:   spec,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.refreshCreators); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) refreshCreators() {
	ctx, cancel := context.WithTimeout(s.ctx, refreshTimeout)
	defer cancel()

	creators, err := s.db.ListCreators(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list creators for refresh",
			"error", err)
		return
	}

	refreshed := 0
	for _, creator := range creators {
		if ctx.Err() != nil {
			s.log.InfoContext(ctx, "Refresh context is done",
				"error", ctx.Err(),
				"refreshedCount", refreshed,
				"creatorCount", len(creators))
			return
		}

		if _, err = s.syncer.Sync(ctx, creator.Service, creator.CreatorID); err != nil {
			s.log.ErrorContext(ctx, "Failed to refresh creator",
				"error", err,
				"service", creator.Service,
				"creatorID", creator.CreatorID)
			continue
		}

		refreshed++
	}

	if len(creators) > 0 {
		s.log.InfoContext(ctx, "Background refresh finished",
			"refreshedCount", refreshed,
			"creatorCount", len(creators))
	}
}
