// Package usecase contains application business logic.
package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

const (
	// DefaultPollInterval is how often the orchestrator checks for Done.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultKillTimeout bounds a single force stop attempt.
	DefaultKillTimeout = 6000 * time.Millisecond
)

// ForceStopSession is the part of forcestop.Session the orchestrator uses.
type ForceStopSession interface {
	Arm(pkg string)
	Disarm()
	Subscribe() (<-chan domain.ForceStopState, func())
}

// KillerOptions tunes the wait loop. Zero values fall back to the defaults.
type KillerOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// KillerImpl implements domain.Killer.
type KillerImpl struct {
	session   ForceStopSession
	navigator domain.Navigator
	history   domain.KillHistory
	opts      KillerOptions
	logger    *zap.Logger

	inFlight atomic.Bool
}

// NewKiller creates a kill orchestrator. history may be nil.
func NewKiller(
	session ForceStopSession,
	nav domain.Navigator,
	history domain.KillHistory,
	opts KillerOptions,
	logger *zap.Logger,
) *KillerImpl {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultKillTimeout
	}
	return &KillerImpl{
		session:   session,
		navigator: nav,
		history:   history,
		opts:      opts,
		logger:    logger,
	}
}

// KillApp opens the App Info screen for the target and waits until the
// session reports Done for it, the timeout elapses, or ctx is canceled.
// Only one kill runs at a time; a concurrent call gets domain.ErrBusy.
// How the attempt ended is reported in the result's Outcome, not as an error.
func (k *KillerImpl) KillApp(ctx context.Context, target domain.TargetRequest) (domain.KillResult, error) {
	if err := target.Validate(); err != nil {
		return domain.KillResult{}, err
	}
	if !k.inFlight.CompareAndSwap(false, true) {
		return domain.KillResult{}, domain.ErrBusy
	}
	defer k.inFlight.Store(false)

	result := domain.KillResult{
		ID:         uuid.NewString(),
		Package:    target.PackageName,
		LastStatus: domain.StatusWaitingForClick,
		StartedAt:  time.Now(),
	}

	k.session.Arm(target.PackageName)
	updates, unsubscribe := k.session.Subscribe()
	defer k.session.Disarm()
	defer unsubscribe()

	if err := k.navigator.OpenAppInfo(ctx, target.PackageName); err != nil {
		k.logger.Warn("failed to open app info",
			zap.String("package", target.PackageName),
			zap.Error(err))
		result.Outcome = domain.OutcomeNavigationFailed
		return k.finish(result), nil
	}

	result.Outcome, result.LastStatus = k.wait(ctx, target.PackageName, updates)
	return k.finish(result), nil
}

func (k *KillerImpl) wait(ctx context.Context, pkg string, updates <-chan domain.ForceStopState) (domain.KillOutcome, domain.ForceStopStatus) {
	ticker := time.NewTicker(k.opts.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(k.opts.Timeout)
	defer deadline.Stop()

	last := domain.StatusWaitingForClick
	for {
		select {
		case <-ctx.Done():
			return domain.OutcomeCanceled, last
		case <-deadline.C:
			return domain.OutcomeTimedOut, last
		case <-ticker.C:
			select {
			case st := <-updates:
				if st.PackageName == pkg {
					last = st.Status
				}
			default:
			}
			if last == domain.StatusDone {
				return domain.OutcomeStopped, last
			}
		}
	}
}

func (k *KillerImpl) finish(result domain.KillResult) domain.KillResult {
	result.DurationMs = time.Since(result.StartedAt).Milliseconds()

	k.logger.Info("kill finished",
		zap.String("id", result.ID),
		zap.String("package", result.Package),
		zap.String("outcome", string(result.Outcome)),
		zap.String("last_status", result.LastStatus.String()),
		zap.Int64("duration_ms", result.DurationMs))

	if k.history != nil {
		if err := k.history.Record(result); err != nil {
			k.logger.Warn("failed to record kill",
				zap.String("id", result.ID),
				zap.Error(err))
		}
	}
	return result
}

// Ensure KillerImpl implements domain.Killer.
var _ domain.Killer = (*KillerImpl)(nil)
