package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

// MaintenanceUseCase runs slow-cadence housekeeping over the
// repository. Today that is pruning expired extraction cache entries;
// the cache is content-addressed, so a pruned entry is simply
// recomputed on the next hit.
type MaintenanceUseCase struct {
	repo  interfaces.Repository
	clock func() time.Time
}

// MaintenanceReport summarizes one housekeeping cycle.
type MaintenanceReport struct {
	CachePruned int
}

// NewMaintenanceUseCase creates a MaintenanceUseCase.
func NewMaintenanceUseCase(repo interfaces.Repository) *MaintenanceUseCase {
	return &MaintenanceUseCase{
		repo:  repo,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock injects the time source, for tests.
func (uc *MaintenanceUseCase) SetClock(clock func() time.Time) {
	uc.clock = clock
}

// Run prunes expired cache entries.
func (uc *MaintenanceUseCase) Run(ctx context.Context) (*MaintenanceReport, error) {
	pruned, err := uc.repo.Cache().PruneExpired(ctx, uc.clock())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prune expired cache entries")
	}

	logging.From(ctx).Info("maintenance cycle completed", "cache_pruned", pruned)
	return &MaintenanceReport{CachePruned: pruned}, nil
}
