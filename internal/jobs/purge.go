package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/DAN1X27/messenger-service-sub000/internal/config"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
)

// StartPurgeJob sweeps expired invites, sessions, moderation logs and abandoned
// temporary registrations on a fixed interval until ctx is cancelled.
func StartPurgeJob(ctx context.Context, cfg config.Config, queries *repository.Queries, log zerolog.Logger) {
	interval := cfg.PurgeInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				runPurge(tickCtx, cfg, queries, log)
				cancel()
			}
		}
	}()
}

func runPurge(ctx context.Context, cfg config.Config, queries *repository.Queries, log zerolog.Logger) {
	now := time.Now().UTC()

	for _, kind := range []model.EntityKind{model.KindChannel, model.KindGroup} {
		n, err := queries.PurgeExpiredInvites(ctx, kind, now)
		if err != nil {
			log.Error().Err(err).Str("kind", string(kind)).Msg("invite purge failed")
		} else if n > 0 {
			log.Info().Int64("count", n).Str("kind", string(kind)).Msg("expired invites purged")
		}
	}

	if n, err := queries.PurgeExpiredSessions(ctx, now); err != nil {
		log.Error().Err(err).Msg("session purge failed")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("expired sessions purged")
	}

	if n, err := queries.PurgeExpiredModerationLogs(ctx, now); err != nil {
		log.Error().Err(err).Msg("moderation log purge failed")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("expired moderation logs purged")
	}

	if n, err := queries.DeleteTemporaryUsersBefore(ctx, now.Add(-cfg.TempUserTTL)); err != nil {
		log.Error().Err(err).Msg("temporary user purge failed")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("stale temporary users purged")
	}
}
