package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SweepStore executes scheduler persistence operations within the ambient transaction.
type SweepStore interface {
	MarkQueued(ctx context.Context, params MarkQueuedParams) (bool, error)
	UpdateActiveFireKey(ctx context.Context, params UpdateActiveFireKeyParams) error
}

// JobStateReader reports the current overrun states for a sweep's jobs.
type JobStateReader interface {
	JobStatesBySweep(ctx context.Context, sweepName string, now time.Time) (OverrunStateMask, error)
}

// JobEnqueuer creates a sync job for the provided sweep using the supplied fire key.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, sweep Sweep, fireKey string) (bool, error)
}

// ProcessorOptions configures Processor defaults.
type ProcessorOptions struct {
	DefaultPolicy OverrunPolicy
	DefaultStates OverrunStateMask
	StateReader   JobStateReader
}

// Processor owns the overrun policy flow for due sweeps.
type Processor struct {
	defaultPolicy OverrunPolicy
	defaultStates OverrunStateMask
	stateReader   JobStateReader
}

// NewProcessor constructs a Processor with sane defaults.
func NewProcessor(opts ProcessorOptions) *Processor {
	policy := opts.DefaultPolicy
	if policy == "" {
		policy = OverrunPolicySkip
	}
	states := opts.DefaultStates
	if states == 0 {
		states = OverrunStatesDefault
	}
	return &Processor{
		defaultPolicy: policy,
		defaultStates: states,
		stateReader:   opts.StateReader,
	}
}

// ProcessParams supplies the per-invocation collaborators for Process.
type ProcessParams struct {
	Sweep    Sweep
	Now      time.Time
	Store    SweepStore
	Enqueuer JobEnqueuer
}

// ProcessResult captures the outcome of processing a sweep.
type ProcessResult struct {
	Worked        bool
	Enqueued      bool
	MarkedQueued  bool
	FireKey       string
	ShouldEnqueue bool
}

// Process evaluates a sweep and applies overrun policy updates via the provided collaborators.
func (p *Processor) Process(ctx context.Context, params ProcessParams) (*ProcessResult, error) {
	if params.Store == nil {
		return nil, errors.New("sweep store is required")
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	result := &ProcessResult{}
	if !params.Sweep.DueAt(now) {
		return result, nil
	}

	return p.processDueSweep(ctx, processDueParams{
		Sweep:    params.Sweep,
		Store:    params.Store,
		Enqueuer: params.Enqueuer,
		Now:      now,
	})
}

type processDueParams struct {
	Sweep    Sweep
	Store    SweepStore
	Enqueuer JobEnqueuer
	Now      time.Time
}

type shouldEnqueueParams struct {
	Sweep    Sweep
	Strategy sweepStrategy
	FireKey  string
	Now      time.Time
}

type finalizeEnqueueParams struct {
	Policy    OverrunPolicy
	SweepID   string
	FireKey   string
	Now       time.Time
	NextRunAt time.Time
}

func (p *Processor) processDueSweep(ctx context.Context, params processDueParams) (*ProcessResult, error) {
	result := &ProcessResult{}
	strategy := p.resolveStrategy(params.Sweep)

	nextRun, err := params.Sweep.NextRun(params.Now)
	if err != nil {
		return nil, fmt.Errorf("compute next run: %w", err)
	}

	fireKey := ComputeFireKey(params.Sweep, params.Now)
	result.FireKey = fireKey
	shouldEnqueue, err := p.shouldEnqueue(ctx, shouldEnqueueParams{
		Sweep:    params.Sweep,
		Strategy: strategy,
		FireKey:  fireKey,
		Now:      params.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("check overrun policy: %w", err)
	}
	result.ShouldEnqueue = shouldEnqueue

	marked, markErr := p.markIfRequired(ctx, params.Store, markIfRequiredParams{
		strategy: strategy,
		markParams: MarkQueuedParams{
			ID:        params.Sweep.ID,
			Now:       params.Now,
			NextRunAt: &nextRun,
		},
	})
	if markErr != nil {
		return nil, markErr
	}
	if marked {
		result.MarkedQueued = true
		result.Worked = true
	}
	if !shouldEnqueue {
		return result, nil
	}
	if params.Enqueuer == nil {
		return nil, errors.New("job enqueuer is required")
	}
	created, enqueueErr := params.Enqueuer.Enqueue(ctx, params.Sweep, fireKey)
	if enqueueErr != nil {
		return nil, fmt.Errorf("enqueue job: %w", enqueueErr)
	}
	if !created {
		return result, nil
	}
	result.Enqueued = true
	result.Worked = true
	if finalizeErr := p.finalizeEnqueue(ctx, params.Store, finalizeEnqueueParams{
		Policy:    strategy.policy,
		SweepID:   params.Sweep.ID,
		FireKey:   fireKey,
		Now:       params.Now,
		NextRunAt: nextRun,
	}); finalizeErr != nil {
		return nil, finalizeErr
	}

	return result, nil
}

type markIfRequiredParams struct {
	strategy   sweepStrategy
	markParams MarkQueuedParams
}

func (p *Processor) markIfRequired(
	ctx context.Context,
	store SweepStore,
	params markIfRequiredParams,
) (bool, error) {
	if params.strategy.policy == OverrunPolicyQueue {
		return false, nil
	}

	marked, err := store.MarkQueued(ctx, params.markParams)
	if err != nil {
		return false, fmt.Errorf("mark sweep queued: %w", err)
	}
	return marked, nil
}

type sweepStrategy struct {
	policy OverrunPolicy
	states OverrunStateMask
}

func (p *Processor) resolveStrategy(sweep Sweep) sweepStrategy {
	policy := p.defaultPolicy
	states := p.defaultStates

	if sweep.OverrunPolicy != nil {
		policy = *sweep.OverrunPolicy
	}
	if sweep.OverrunStates != nil {
		if overrides := *sweep.OverrunStates; overrides != 0 {
			states = overrides
		} else {
			states = OverrunStatesDefault
		}
	}
	if states == 0 {
		states = OverrunStatesDefault
	}

	return sweepStrategy{policy: policy, states: states}
}

func (p *Processor) finalizeEnqueue(ctx context.Context, store SweepStore, params finalizeEnqueueParams) error {
	switch params.Policy {
	case OverrunPolicyQueue:
		setAt := params.Now
		nextRun := params.NextRunAt
		_, markErr := store.MarkQueued(ctx, MarkQueuedParams{
			ID:                 params.SweepID,
			Now:                params.Now,
			NextRunAt:          &nextRun,
			ActiveFireKey:      &params.FireKey,
			ActiveFireKeySetAt: &setAt,
		})
		if markErr != nil {
			return fmt.Errorf("mark sweep queued after enqueue: %w", markErr)
		}
	case OverrunPolicySkip, OverrunPolicyReschedule:
		updateErr := store.UpdateActiveFireKey(ctx, UpdateActiveFireKeyParams{
			ID:      params.SweepID,
			FireKey: &params.FireKey,
			SetAt:   params.Now,
		})
		if updateErr != nil {
			return fmt.Errorf("set active fire key: %w", updateErr)
		}
	default:
		return fmt.Errorf("unknown overrun policy: %s", params.Policy)
	}
	return nil
}

func (p *Processor) shouldEnqueue(ctx context.Context, params shouldEnqueueParams) (bool, error) {
	switch params.Strategy.policy {
	case OverrunPolicyQueue:
		return true, nil
	case OverrunPolicyReschedule:
		return false, nil
	case OverrunPolicySkip:
		mask := params.Strategy.states
		if mask == 0 {
			mask = OverrunStatesDefault
		}
		if p.stateReader == nil {
			return false, errors.New("job state reader is not configured")
		}

		states, err := p.stateReader.JobStatesBySweep(ctx, params.Sweep.Name, params.Now)
		if err != nil {
			return false, fmt.Errorf("check job states: %w", err)
		}
		if states&mask != 0 {
			return false, nil
		}
		if params.Sweep.ActiveFireKey != nil && *params.Sweep.ActiveFireKey != "" &&
			*params.Sweep.ActiveFireKey == params.FireKey {
			return false, nil
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown overrun policy: %s", params.Strategy.policy)
	}
}

// ComputeFireKey derives an idempotent fire key for the provided sweep at the
// given time. Cron sweeps key on the precomputed fire time so one calendar
// slot yields one key; interval sweeps key on the interval slot number.
func ComputeFireKey(sweep Sweep, now time.Time) string {
	if sweep.CronExpr != nil && *sweep.CronExpr != "" && sweep.NextRunAt != nil {
		return fmt.Sprintf("%s:%d", sweep.ID, sweep.NextRunAt.Unix())
	}
	intervalSec := int64(sweep.Interval / time.Second)
	if intervalSec <= 0 {
		return fmt.Sprintf("%s:%d", sweep.ID, now.Unix())
	}
	slot := now.Unix() / intervalSec
	return fmt.Sprintf("%s:%d", sweep.ID, slot)
}
