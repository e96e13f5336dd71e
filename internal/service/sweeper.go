package service

import (
	"context"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/repository"
)

// ISweeper exposes the validity sweep to handlers.
type ISweeper interface {
	ExpireOutOfWindowActiveAlerts(ctx context.Context, icaos []string) (int64, error)
}

// Sweeper moves active alerts whose validity window no longer contains now
// to expired. It never touches expired or archived records.
type Sweeper struct {
	repo repository.IAlertRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewSweeper(repo repository.IAlertRepository, log *logger.Logger) *Sweeper {
	return &Sweeper{
		repo: repo,
		log:  log.With("sweeper"),
		now:  time.Now,
	}
}

// ExpireOutOfWindowActiveAlerts expires active records for icaos (all when
// empty) with valid_until < now or valid_from > now, and returns how many
// changed. Running it twice at the same instant changes nothing the second time.
func (s *Sweeper) ExpireOutOfWindowActiveAlerts(ctx context.Context, icaos []string) (int64, error) {
	n, err := s.repo.ExpireOutOfWindow(ctx, icaos, s.now().UTC())
	if err != nil {
		s.log.Error("Sweep failed: %v", err)
		return 0, &StoreError{Op: "expire", Err: err}
	}

	if n > 0 {
		if len(icaos) == 0 {
			s.log.Info("Expired %d alert(s)", n)
		} else {
			s.log.Info("Expired %d alert(s) for %v", n, icaos)
		}
	}
	return n, nil
}

// ArchiveExpired archives expired records untouched for longer than olderThan.
func (s *Sweeper) ArchiveExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.repo.ArchiveExpired(ctx, olderThan)
	if err != nil {
		s.log.Error("Archive failed: %v", err)
		return 0, &StoreError{Op: "archive", Err: err}
	}
	if n > 0 {
		s.log.Info("[CLEANUP] Archived %d expired alert(s)", n)
	}
	return n, nil
}
