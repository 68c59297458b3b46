package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prospect-labs/scout/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Coordinator defaults.
const (
	DefaultConcurrency    = 4
	DefaultCallTimeout    = 30 * time.Second
	DefaultMaxRetries     = 2
	DefaultRetryBackoff   = 500 * time.Millisecond
	DefaultCallBudget     = 64
	DefaultCallsPerSecond = 10
)

// CoordinatorConfig bounds one pass's use of the external collaborators.
type CoordinatorConfig struct {
	// Concurrency caps the worker pool investigating hypotheses in parallel.
	Concurrency int
	// CallTimeout bounds a single collaborator call.
	CallTimeout time.Duration
	// MaxRetries is the retry budget per collaborator call, after the first
	// attempt, with exponential backoff.
	MaxRetries int
	// RetryBackoff is the initial backoff, doubled on each retry.
	RetryBackoff time.Duration
	// CallBudget caps total collaborator calls in one pass. The collaborators
	// are not assumed to rate-limit on the engine's behalf.
	CallBudget int
	// CallsPerSecond smooths the outbound call rate within the budget.
	CallsPerSecond float64
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.CallBudget <= 0 {
		c.CallBudget = DefaultCallBudget
	}
	if c.CallsPerSecond <= 0 {
		c.CallsPerSecond = DefaultCallsPerSecond
	}
	return c
}

// Coordinator runs one investigation pass: it dispatches hypotheses to the
// evidence-gathering collaborator under bounded concurrency, validates the
// reasoning collaborator's proposed decisions, and applies them to the
// ledger. All collaborator failures are absorbed here and converted to
// NO_PROGRESS; a flaky external call can never corrupt confidence state.
type Coordinator struct {
	gatherer domain.EvidenceGatherer
	reasoner domain.Reasoner
	cfg      CoordinatorConfig
	logger   *zap.Logger
}

// NewCoordinator creates a pass coordinator over the two collaborators.
func NewCoordinator(gatherer domain.EvidenceGatherer, reasoner domain.Reasoner, cfg CoordinatorConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		gatherer: gatherer,
		reasoner: reasoner,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// RunPass investigates the given hypotheses concurrently and materializes
// the PassResult only after every dispatched worker has finished. The
// returned error is non-nil only for a ledger InvalidState, which signals a
// core defect and aborts the session.
//
// Cancellation lets in-flight workers finish their current attempt; not-yet-
// started hypotheses are left PROPOSED and never dispatched.
func (c *Coordinator) RunPass(ctx context.Context, ledger *Ledger, pass int, hypotheses []domain.Hypothesis) (domain.PassResult, error) {
	start := time.Now()
	before := ledger.Confidence()

	outcomes := make([]*domain.HypothesisOutcome, len(hypotheses))
	limiter := rate.NewLimiter(rate.Limit(c.cfg.CallsPerSecond), c.cfg.Concurrency)
	var calls atomic.Int64

	var fatalMu sync.Mutex
	var fatal error

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Concurrency)

	for i, h := range hypotheses {
		i, h := i, h
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcome, err := c.investigate(ctx, ledger, pass, h, limiter, &calls)
			outcomes[i] = &outcome
			if err != nil {
				fatalMu.Lock()
				if fatal == nil {
					fatal = err
				}
				fatalMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	investigated := make([]domain.HypothesisOutcome, 0, len(outcomes))
	evidenceAdded := 0
	var errs []string
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		investigated = append(investigated, *o)
		evidenceAdded += o.EvidenceAdded
		if o.Error != "" {
			errs = append(errs, fmt.Sprintf("hypothesis %s: %s", o.HypothesisID, o.Error))
		}
	}
	sort.Slice(investigated, func(i, j int) bool {
		return bytes.Compare(investigated[i].HypothesisID[:], investigated[j].HypothesisID[:]) < 0
	})
	sort.Strings(errs)

	after := ledger.Confidence()
	result := domain.PassResult{
		Pass:            pass,
		Investigated:    investigated,
		EvidenceAdded:   evidenceAdded,
		ConfidenceDelta: after - before,
		Confidence:      after,
		Elapsed:         time.Since(start),
		Errors:          errs,
		StartedAt:       start,
	}

	c.logger.Info("pass complete",
		zap.Int("pass", pass),
		zap.Int("investigated", len(investigated)),
		zap.Int("evidence_added", evidenceAdded),
		zap.Float64("confidence", after),
		zap.Float64("confidence_delta", result.ConfidenceDelta),
		zap.Duration("elapsed", result.Elapsed))

	return result, fatal
}

// investigate runs the full per-hypothesis protocol: gather evidence,
// obtain a proposed decision, validate it, and record it. Returns a non-nil
// error only when the ledger rejects the write with InvalidState.
func (c *Coordinator) investigate(ctx context.Context, ledger *Ledger, pass int, h domain.Hypothesis, limiter *rate.Limiter, calls *atomic.Int64) (domain.HypothesisOutcome, error) {
	outcome := domain.HypothesisOutcome{
		HypothesisID: h.ID,
		Category:     h.Category,
		Decision:     domain.DecisionNoProgress,
	}

	if err := ledger.MarkInvestigating(h.ID, pass); err != nil {
		if cur, ok := ledger.Hypothesis(h.ID); ok && cur.State == domain.StateSaturated {
			// The category saturated after this hypothesis was selected for
			// dispatch. Skipping it is a normal outcome, not a defect.
			outcome.Decision = domain.DecisionSaturated
			outcome.Confidence = cur.Confidence
			c.logger.Info("hypothesis saturated before dispatch",
				zap.String("hypothesis_id", h.ID.String()),
				zap.Int("pass", pass))
			return outcome, nil
		}
		outcome.Error = err.Error()
		c.logger.Error("cannot dispatch hypothesis",
			zap.String("hypothesis_id", h.ID.String()),
			zap.Int("pass", pass),
			zap.Error(err))
		return outcome, err
	}

	decision := domain.DecisionNoProgress
	var evidence []domain.Evidence

	gathered, err := c.gatherEvidence(ctx, h, limiter, calls)
	if err != nil {
		outcome.Error = err.Error()
		c.logger.Warn("evidence gathering failed",
			zap.String("hypothesis_id", h.ID.String()),
			zap.Int("pass", pass),
			zap.Error(err))
	} else {
		evidence = gathered
		proposal, err := c.proposeDecision(ctx, h, evidence, limiter, calls)
		if err != nil {
			outcome.Error = err.Error()
			c.logger.Warn("decision proposal failed",
				zap.String("hypothesis_id", h.ID.String()),
				zap.Int("pass", pass),
				zap.Error(err))
		} else {
			outcome.Rationale = proposal.Rationale
			parsed, perr := domain.ParseDecision(proposal.Decision)
			if perr != nil {
				// Open external input outside the five-value set: coerce and
				// log the anomaly.
				outcome.Error = perr.Error()
				c.logger.Warn("collaborator returned unrecognized decision",
					zap.String("hypothesis_id", h.ID.String()),
					zap.Int("pass", pass),
					zap.String("raw_decision", proposal.Decision))
			} else {
				if parsed == domain.DecisionAccept && len(evidence) < domain.MinEvidenceForAccept {
					c.logger.Info("insufficient evidence for ACCEPT, downgrading",
						zap.String("hypothesis_id", h.ID.String()),
						zap.Int("pass", pass),
						zap.Int("evidence", len(evidence)),
						zap.Int("required", domain.MinEvidenceForAccept))
					parsed = domain.DecisionWeakAccept
				}
				decision = parsed
			}
		}
	}

	if _, err := ledger.RecordDecision(h.ID, pass, decision, evidence); err != nil {
		outcome.Decision = domain.DecisionNoProgress
		outcome.Error = err.Error()
		c.logger.Error("ledger rejected decision",
			zap.String("hypothesis_id", h.ID.String()),
			zap.Int("pass", pass),
			zap.Error(err))
		return outcome, err
	}

	outcome.Decision = decision
	outcome.EvidenceAdded = len(evidence)
	if updated, ok := ledger.Hypothesis(h.ID); ok {
		outcome.Confidence = updated.Confidence
	}
	return outcome, nil
}

func (c *Coordinator) gatherEvidence(ctx context.Context, h domain.Hypothesis, limiter *rate.Limiter, calls *atomic.Int64) ([]domain.Evidence, error) {
	var evidence []domain.Evidence
	err := c.callWithRetry(ctx, limiter, calls, func(callCtx context.Context) error {
		ev, err := c.gatherer.Search(callCtx, h)
		if err != nil {
			return err
		}
		evidence = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evidence, nil
}

func (c *Coordinator) proposeDecision(ctx context.Context, h domain.Hypothesis, evidence []domain.Evidence, limiter *rate.Limiter, calls *atomic.Int64) (domain.DecisionProposal, error) {
	var proposal domain.DecisionProposal
	err := c.callWithRetry(ctx, limiter, calls, func(callCtx context.Context) error {
		p, err := c.reasoner.ProposeDecision(callCtx, h, evidence)
		if err != nil {
			return err
		}
		proposal = p
		return nil
	})
	if err != nil {
		return domain.DecisionProposal{}, err
	}
	return proposal, nil
}

// callWithRetry runs one collaborator call with the pass budget, the rate
// limit, a per-call timeout, and the fixed retry budget. The per-call
// context is detached from the session context: a cancelled session lets
// the current attempt finish, it only suppresses further attempts.
func (c *Coordinator) callWithRetry(ctx context.Context, limiter *rate.Limiter, calls *atomic.Int64, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrCollaboratorFailed, ctx.Err())
			}
		}

		if calls.Add(1) > int64(c.cfg.CallBudget) {
			return fmt.Errorf("%w: pass call budget exhausted", domain.ErrCollaboratorFailed)
		}
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCollaboratorFailed, err)
		}

		callCtx, cancel := context.WithTimeout(context.Background(), c.cfg.CallTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.DeadlineExceeded) {
			lastErr = fmt.Errorf("%w: %v", domain.ErrCollaboratorTimeout, err)
		} else {
			lastErr = fmt.Errorf("%w: %v", domain.ErrCollaboratorFailed, err)
		}

		if ctx.Err() != nil {
			break
		}
	}
	return lastErr
}
