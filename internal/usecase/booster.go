package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// Selector picks which unprotected packages a sweep kills.
type Selector func(p domain.ProcessInfo) bool

// All selects every package.
func All(domain.ProcessInfo) bool { return true }

// BoosterImpl implements domain.Booster.
type BoosterImpl struct {
	lister      domain.ProcessLister
	policyStore domain.PolicyStore
	killer      domain.Killer
	logger      *zap.Logger
}

// NewBooster creates a booster that kills through killer.
func NewBooster(
	lister domain.ProcessLister,
	ps domain.PolicyStore,
	killer domain.Killer,
	logger *zap.Logger,
) *BoosterImpl {
	return &BoosterImpl{
		lister:      lister,
		policyStore: ps,
		killer:      killer,
		logger:      logger,
	}
}

// Boost force stops every running package no policy protects.
func (b *BoosterImpl) Boost(ctx context.Context) (*domain.BoostResult, error) {
	return b.Sweep(ctx, All)
}

// Candidates lists running packages that a boost would kill, largest
// resident memory first, and the packages policies protect.
func (b *BoosterImpl) Candidates(ctx context.Context, sel Selector) (candidates []domain.ProcessInfo, skipped []string, err error) {
	running, err := b.lister.ListRunning(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list running packages: %w", err)
	}

	for _, p := range running {
		if !sel(p) {
			continue
		}
		if id, ok := b.policyStore.Protects(ctx, p); ok {
			b.logger.Debug("package protected",
				zap.String("package", p.PackageName),
				zap.String("policy", id))
			skipped = append(skipped, p.PackageName)
			continue
		}
		candidates = append(candidates, p)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ResidentMemoryBytes > candidates[j].ResidentMemoryBytes
	})
	return candidates, skipped, nil
}

// Sweep kills the selected unprotected packages one after another.
// Per-package failures are collected in the result; only a failure to
// list packages is returned as an error.
func (b *BoosterImpl) Sweep(ctx context.Context, sel Selector) (*domain.BoostResult, error) {
	start := time.Now()

	candidates, skipped, err := b.Candidates(ctx, sel)
	if err != nil {
		return nil, err
	}

	result := &domain.BoostResult{
		Candidates: candidates,
		Skipped:    skipped,
		Kills:      make([]domain.KillResult, 0, len(candidates)),
		Errors:     make([]error, 0),
		ExecutedAt: start,
	}

	for _, p := range candidates {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			break
		}

		kill, err := b.killer.KillApp(ctx, domain.TargetRequest{PackageName: p.PackageName})
		if err != nil {
			b.logger.Warn("failed to kill package",
				zap.String("package", p.PackageName),
				zap.Error(err))
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", p.PackageName, err))
			if errors.Is(err, domain.ErrBusy) {
				break
			}
			continue
		}
		result.Kills = append(result.Kills, kill)
	}

	result.DurationMs = time.Since(start).Milliseconds()

	b.logger.Info("boost finished",
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("stopped", countStopped(result.Kills)),
		zap.Int("errors", len(result.Errors)),
		zap.Int64("duration_ms", result.DurationMs))

	return result, nil
}

func countStopped(kills []domain.KillResult) int {
	n := 0
	for _, k := range kills {
		if k.Stopped() {
			n++
		}
	}
	return n
}

// Ensure BoosterImpl implements domain.Booster.
var _ domain.Booster = (*BoosterImpl)(nil)
