package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prospect-labs/scout/internal/domain"
	"go.uber.org/zap"
)

// Orchestrator defaults and fixed policy constants.
const (
	DefaultMaxPasses = 5
	DefaultTopK      = 6

	// ActionableConfidence is the session confidence at which the actionable
	// gate can terminate discovery. Fixed policy, not tunable.
	ActionableConfidence = 0.80

	// DefaultInitialConfidence seeds hypotheses whose proposer supplied none.
	DefaultInitialConfidence = 0.30

	// networkBoostPerPartner converts partner count into a boost, clamped to
	// MaxBoost and shared across the live hypotheses through the ledger.
	networkBoostPerPartner = 0.01

	archiveTimeout = 10 * time.Second
)

// OrchestratorConfig bounds a discovery session.
type OrchestratorConfig struct {
	// MaxPasses caps the number of passes when the caller passes none.
	MaxPasses int
	// TopK caps how many ranked hypotheses each pass dispatches.
	TopK int
	// SessionTimeout bounds the whole session. Zero means no timeout.
	SessionTimeout time.Duration
	// Coordinator bounds each pass.
	Coordinator CoordinatorConfig
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.MaxPasses <= 0 {
		c.MaxPasses = DefaultMaxPasses
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	return c
}

// Orchestrator sequences investigation passes for a subject entity:
// it generates hypotheses, drives the pass coordinator, injects context
// provider boosts between passes, and terminates per the stopping policy.
// Passes never run in parallel with each other; each pass's hypothesis set
// is a function of the prior pass's final ledger state.
type Orchestrator struct {
	gatherer domain.EvidenceGatherer
	reasoner domain.Reasoner

	temporal domain.TemporalContextProvider
	network  domain.NetworkContextProvider
	sessions domain.SessionStore
	episodes domain.EpisodeStore
	embedder domain.EmbeddingClient

	table    domain.CategoryTable
	cfg      OrchestratorConfig
	progress chan<- domain.PassResult
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator over the two required
// collaborators. Context providers and archival stores are optional and
// attached with setters.
func NewOrchestrator(gatherer domain.EvidenceGatherer, reasoner domain.Reasoner, cfg OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		gatherer: gatherer,
		reasoner: reasoner,
		table:    domain.DefaultCategoryTable(),
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// SetTemporalProvider attaches the temporal context provider.
func (o *Orchestrator) SetTemporalProvider(p domain.TemporalContextProvider) { o.temporal = p }

// SetNetworkProvider attaches the network context provider.
func (o *Orchestrator) SetNetworkProvider(p domain.NetworkContextProvider) { o.network = p }

// SetSessionStore attaches the session archive.
func (o *Orchestrator) SetSessionStore(s domain.SessionStore) { o.sessions = s }

// SetEpisodeStore attaches the pass-episode archive.
func (o *Orchestrator) SetEpisodeStore(s domain.EpisodeStore) { o.episodes = s }

// SetEmbeddingClient attaches the embedder used for episode archival.
func (o *Orchestrator) SetEmbeddingClient(c domain.EmbeddingClient) { o.embedder = c }

// SetCategoryTable replaces the category valuation table.
func (o *Orchestrator) SetCategoryTable(t domain.CategoryTable) {
	if t != nil {
		o.table = t
	}
}

// SetProgress attaches an optional pass-result observer. Sends never block;
// correctness does not depend on anyone listening.
func (o *Orchestrator) SetProgress(ch chan<- domain.PassResult) { o.progress = ch }

// CategoryTable returns the valuation table in use.
func (o *Orchestrator) CategoryTable() domain.CategoryTable { return o.table }

// Discover runs a full multi-pass discovery session for the entity and
// returns the terminal session. Cancellation is a normal outcome: the
// session terminates with reason CANCELLED and no error. An error is
// returned only when the engine cannot run at all (ErrEngineUnavailable) or
// a ledger invariant was violated mid-session (ErrInvalidState).
func (o *Orchestrator) Discover(ctx context.Context, entityID string, maxPasses int) (*domain.Session, error) {
	if o.gatherer == nil || o.reasoner == nil {
		return nil, fmt.Errorf("%w: evidence and reasoning collaborators are required", domain.ErrEngineUnavailable)
	}
	if strings.TrimSpace(entityID) == "" {
		return nil, fmt.Errorf("%w: entity id is required", domain.ErrEngineUnavailable)
	}
	if maxPasses <= 0 {
		maxPasses = o.cfg.MaxPasses
	}
	if o.cfg.SessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.SessionTimeout)
		defer cancel()
	}

	sessionID := uuid.New()
	ledger := NewLedger(sessionID, o.logger)
	started := time.Now()

	o.logger.Info("discovery started",
		zap.String("session_id", sessionID.String()),
		zap.String("entity_id", entityID),
		zap.Int("max_passes", maxPasses))

	proposals, err := o.reasoner.GenerateHypotheses(ctx, entityID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: initial hypothesis generation: %v", domain.ErrEngineUnavailable, err)
	}
	if admitted := o.admit(ledger, entityID, 1, proposals); admitted == 0 {
		return nil, fmt.Errorf("%w: no hypotheses to investigate", domain.ErrEngineUnavailable)
	}

	coordinator := NewCoordinator(o.gatherer, o.reasoner, o.cfg.Coordinator, o.logger)

	var passes []domain.PassResult
	reason := domain.ReasonExhausted
	windowStart := started

	for pass := 1; pass <= maxPasses; pass++ {
		if ctx.Err() != nil {
			reason = domain.ReasonCancelled
			break
		}

		candidates := TopK(Rank(ledger.Dispatchable(), o.table), o.cfg.TopK)
		if len(candidates) == 0 {
			reason = domain.ReasonExhausted
			break
		}

		result, err := coordinator.RunPass(ctx, ledger, pass, candidates)
		if err != nil {
			o.logger.Error("session aborted by ledger invariant violation",
				zap.String("session_id", sessionID.String()),
				zap.Int("pass", pass),
				zap.Error(err))
			return nil, fmt.Errorf("pass %d aborted: %w", pass, err)
		}

		passes = append(passes, result)
		o.publish(result)
		windowEnd := time.Now()
		o.archiveEpisode(ctx, sessionID, entityID, result)

		// Stopping policy, first condition to match wins.
		if ctx.Err() != nil {
			reason = domain.ReasonCancelled
			break
		}
		if pass == maxPasses {
			reason = domain.ReasonMaxPasses
			break
		}
		if ledger.Confidence() >= ActionableConfidence && ledger.GateSatisfied() {
			reason = domain.ReasonActionable
			break
		}
		if result.AllStalled() {
			reason = domain.ReasonExhausted
			break
		}

		o.replenish(ctx, ledger, entityID, pass)
		o.applyContext(ctx, ledger, entityID, domain.PassWindow{
			Pass:  pass,
			Start: windowStart,
			End:   windowEnd,
		})
		windowStart = windowEnd
	}

	session := &domain.Session{
		ID:          sessionID,
		EntityID:    entityID,
		StartedAt:   started,
		CompletedAt: time.Now(),
		Passes:      passes,
		Hypotheses:  ledger.Snapshot(),
		Confidence:  ledger.Confidence(),
		Reason:      reason,
	}

	o.archiveSession(session)

	o.logger.Info("discovery finished",
		zap.String("session_id", sessionID.String()),
		zap.String("entity_id", entityID),
		zap.String("reason", string(reason)),
		zap.Float64("confidence", session.Confidence),
		zap.Int("passes", len(passes)))

	return session, nil
}

// admit adds hypothesis proposals to the ledger, skipping duplicates of
// claims already present. Proposals in saturated categories are still
// admitted but arrive pre-saturated and are never dispatched.
func (o *Orchestrator) admit(ledger *Ledger, entityID string, originPass int, proposals []domain.HypothesisProposal) int {
	existing := make(map[string]struct{})
	for _, h := range ledger.Snapshot() {
		existing[claimKey(h.Category, h.Claim)] = struct{}{}
	}

	admitted := 0
	for _, p := range proposals {
		claim := strings.TrimSpace(p.Claim)
		if claim == "" {
			continue
		}
		key := claimKey(p.Category, claim)
		if _, dup := existing[key]; dup {
			continue
		}
		existing[key] = struct{}{}

		confidence := p.InitialConfidence
		if confidence <= 0 {
			confidence = DefaultInitialConfidence
		}
		h := &domain.Hypothesis{
			ID:         uuid.New(),
			EntityID:   entityID,
			Category:   p.Category,
			Claim:      claim,
			Confidence: confidence,
			State:      domain.StateProposed,
			OriginPass: originPass,
			CreatedAt:  time.Now(),
		}
		if err := ledger.AddHypothesis(h); err != nil {
			o.logger.Warn("hypothesis not admitted", zap.String("claim", claim), zap.Error(err))
			continue
		}
		admitted++
	}
	return admitted
}

// replenish asks the reasoner for fresh hypotheses against everything the
// ledger already holds, so later passes can steer away from settled claims.
// Failures are logged and skipped; the next pass runs on the existing pool.
func (o *Orchestrator) replenish(ctx context.Context, ledger *Ledger, entityID string, pass int) {
	proposals, err := o.reasoner.GenerateHypotheses(ctx, entityID, ledger.Snapshot())
	if err != nil {
		o.logger.Warn("hypothesis regeneration failed", zap.Int("pass", pass), zap.Error(err))
		return
	}
	if len(proposals) == 0 {
		return
	}
	admitted := o.admit(ledger, entityID, pass+1, proposals)
	o.logger.Info("hypotheses regenerated",
		zap.Int("pass", pass),
		zap.Int("proposed", len(proposals)),
		zap.Int("admitted", admitted))
}

// applyContext queries the context providers for the elapsed pass window and
// applies their bounded boosts and new hypotheses through the ledger.
// Provider failures are logged and skipped; they never affect the pass loop.
func (o *Orchestrator) applyContext(ctx context.Context, ledger *Ledger, entityID string, window domain.PassWindow) {
	if o.temporal != nil {
		boost, err := o.temporal.GetBoost(ctx, entityID, window)
		switch {
		case err != nil:
			o.logger.Warn("temporal provider failed", zap.Int("pass", window.Pass), zap.Error(err))
		case boost.Boost > 0:
			conf := ledger.ApplySessionBoost(window.Pass, "temporal", boost.Boost)
			o.logger.Info("temporal boost applied",
				zap.Int("pass", window.Pass),
				zap.Float64("boost", boost.Boost),
				zap.Float64("confidence", conf),
				zap.String("narrative", boost.Narrative))
		}
	}

	if o.network != nil {
		rels, err := o.network.GetRelationships(ctx, entityID)
		if err != nil {
			o.logger.Warn("network provider failed", zap.Int("pass", window.Pass), zap.Error(err))
			return
		}
		if len(rels.NewHypotheses) > 0 {
			admitted := o.admit(ledger, entityID, window.Pass+1, rels.NewHypotheses)
			o.logger.Info("network hypotheses admitted",
				zap.Int("pass", window.Pass),
				zap.Int("proposed", len(rels.NewHypotheses)),
				zap.Int("admitted", admitted))
		}
		if n := len(rels.Partners); n > 0 {
			boost := clampBoost(networkBoostPerPartner * float64(n))
			live := ledger.Dispatchable()
			if len(live) == 0 {
				conf := ledger.ApplySessionBoost(window.Pass, "network", boost)
				o.logger.Info("network boost applied to session",
					zap.Int("pass", window.Pass),
					zap.Int("partners", n),
					zap.Float64("confidence", conf))
				return
			}
			share := boost / float64(len(live))
			for _, h := range live {
				if _, err := ledger.ApplyBoost(h.ID, window.Pass, "network", share); err != nil {
					o.logger.Warn("network boost skipped",
						zap.String("hypothesis_id", h.ID.String()), zap.Error(err))
				}
			}
			o.logger.Info("network boost distributed",
				zap.Int("pass", window.Pass),
				zap.Int("partners", n),
				zap.Int("competitors", len(rels.Competitors)),
				zap.Int("hypotheses", len(live)),
				zap.Float64("confidence", ledger.Confidence()))
		}
	}
}

func (o *Orchestrator) publish(result domain.PassResult) {
	if o.progress == nil {
		return
	}
	select {
	case o.progress <- result:
	default:
	}
}

// archiveEpisode records one completed pass into the temporal history.
// Best effort: archival failures never affect the session.
func (o *Orchestrator) archiveEpisode(ctx context.Context, sessionID uuid.UUID, entityID string, result domain.PassResult) {
	if o.episodes == nil || ctx.Err() != nil {
		return
	}

	counts := result.Decisions()
	outcome := domain.OutcomeNeutral
	if counts[domain.DecisionAccept] > 0 || counts[domain.DecisionWeakAccept] > 0 {
		outcome = domain.OutcomePositive
	} else if result.AllStalled() {
		outcome = domain.OutcomeNegative
	}

	narrative := fmt.Sprintf("pass %d for %s: %d investigated, %d accept, %d weak_accept, %d reject, %d no_progress, %d saturated",
		result.Pass, entityID, len(result.Investigated),
		counts[domain.DecisionAccept], counts[domain.DecisionWeakAccept], counts[domain.DecisionReject],
		counts[domain.DecisionNoProgress], counts[domain.DecisionSaturated])

	episode := &domain.Episode{
		EntityID:   entityID,
		SessionID:  sessionID,
		Pass:       result.Pass,
		Narrative:  narrative,
		Outcome:    outcome,
		OccurredAt: result.StartedAt,
	}
	if o.embedder != nil {
		if emb, err := o.embedder.Embed(ctx, narrative); err == nil {
			episode.Embedding = emb
		} else {
			o.logger.Debug("episode embedding failed", zap.Error(err))
		}
	}
	if err := o.episodes.Create(ctx, episode); err != nil {
		o.logger.Warn("episode archival failed", zap.Int("pass", result.Pass), zap.Error(err))
	}
}

// archiveSession saves the terminal session. Uses a detached context so that
// a cancelled session is still archived. Best effort.
func (o *Orchestrator) archiveSession(session *domain.Session) {
	if o.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := o.sessions.Save(ctx, session); err != nil {
		o.logger.Warn("session archival failed",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}
}

func claimKey(c domain.Category, claim string) string {
	return string(c) + "|" + strings.ToLower(strings.TrimSpace(claim))
}
