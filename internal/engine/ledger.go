package engine

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prospect-labs/scout/internal/domain"
	"go.uber.org/zap"
)

const (
	// BaseConfidence seeds the session running total at orchestration start.
	BaseConfidence = 0.50

	// MaxBoost bounds a single context-provider boost.
	MaxBoost = domain.MaxContextBoost

	// SaturationRejects is the cumulative REJECT count, per category across
	// all passes, at which the category saturates.
	SaturationRejects = 3
)

// DeltaEvent describes one confidence mutation. Emitted to an optional
// observer; correctness never depends on whether anyone is listening.
type DeltaEvent struct {
	SessionID    uuid.UUID
	HypothesisID uuid.UUID // uuid.Nil for session-scoped boosts
	Pass         int
	Source       string // "decision", "temporal", "network"
	Decision     domain.Decision
	Delta        float64
	Confidence   float64 // session running total after the mutation
}

type boostKey struct {
	hypothesisID uuid.UUID
	pass         int
	source       string
}

// Ledger is the append-only per-hypothesis evidence store with the
// deterministic confidence-update function. It is the only mutable shared
// resource in a session; all writes are serialized behind one mutex so the
// confidence delta of a pass is independent of worker completion order.
type Ledger struct {
	mu sync.Mutex

	sessionID  uuid.UUID
	confidence float64

	hypotheses map[uuid.UUID]*domain.Hypothesis
	evidence   map[uuid.UUID][]domain.Evidence
	decisions  map[uuid.UUID]map[int]domain.Decision
	boosts     map[boostKey]struct{}

	rejectsByCategory map[domain.Category]int
	acceptsByCategory map[domain.Category]int

	observer chan<- DeltaEvent
	logger   *zap.Logger
}

// NewLedger creates an empty ledger seeded at the base confidence.
func NewLedger(sessionID uuid.UUID, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		sessionID:         sessionID,
		confidence:        BaseConfidence,
		hypotheses:        make(map[uuid.UUID]*domain.Hypothesis),
		evidence:          make(map[uuid.UUID][]domain.Evidence),
		decisions:         make(map[uuid.UUID]map[int]domain.Decision),
		boosts:            make(map[boostKey]struct{}),
		rejectsByCategory: make(map[domain.Category]int),
		acceptsByCategory: make(map[domain.Category]int),
		logger:            logger,
	}
}

// SetObserver registers an optional delta-event channel. Sends never block.
func (l *Ledger) SetObserver(ch chan<- DeltaEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = ch
}

// AddHypothesis admits a hypothesis into the ledger in the PROPOSED state.
// A hypothesis admitted into an already-saturated category is marked
// SATURATED immediately and will never be dispatched.
func (l *Ledger) AddHypothesis(h *domain.Hypothesis) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.hypotheses[h.ID]; exists {
		return fmt.Errorf("hypothesis %s already recorded: %w", h.ID, domain.ErrInvalidState)
	}

	stored := *h
	stored.Confidence = clamp01(stored.Confidence)
	stored.State = domain.StateProposed
	if l.rejectsByCategory[stored.Category] >= SaturationRejects {
		stored.State = domain.StateSaturated
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	l.hypotheses[stored.ID] = &stored
	return nil
}

// Confidence returns the session running total.
func (l *Ledger) Confidence() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.confidence
}

// Hypothesis returns a copy of one hypothesis.
func (l *Ledger) Hypothesis(id uuid.UUID) (domain.Hypothesis, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.hypotheses[id]
	if !ok {
		return domain.Hypothesis{}, false
	}
	return *h, true
}

// Snapshot returns copies of all hypotheses in a total order (origin pass,
// then identifier) so that identical ledger state always yields an identical
// snapshot.
func (l *Ledger) Snapshot() []domain.Hypothesis {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Hypothesis, 0, len(l.hypotheses))
	for _, h := range l.hypotheses {
		out = append(out, *h)
	}
	sortHypotheses(out)
	return out
}

// Dispatchable returns hypotheses eligible for the next pass: PROPOSED and
// not in a saturated category.
func (l *Ledger) Dispatchable() []domain.Hypothesis {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Hypothesis
	for _, h := range l.hypotheses {
		if h.State != domain.StateProposed {
			continue
		}
		if l.rejectsByCategory[h.Category] >= SaturationRejects {
			continue
		}
		out = append(out, *h)
	}
	sortHypotheses(out)
	return out
}

// EvidenceFor returns a copy of the evidence recorded for a hypothesis.
func (l *Ledger) EvidenceFor(id uuid.UUID) []domain.Evidence {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := l.evidence[id]
	out := make([]domain.Evidence, len(ev))
	copy(out, ev)
	return out
}

// MarkInvestigating transitions a hypothesis from PROPOSED to INVESTIGATING
// for the given pass and bumps its frequency-seen counter.
func (l *Ledger) MarkInvestigating(id uuid.UUID, pass int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.hypotheses[id]
	if !ok {
		return fmt.Errorf("unknown hypothesis %s: %w", id, domain.ErrInvalidState)
	}
	if h.State != domain.StateProposed {
		return fmt.Errorf("hypothesis %s is %s, not %s: %w", id, h.State, domain.StateProposed, domain.ErrInvalidState)
	}
	h.State = domain.StateInvestigating
	h.FrequencySeen++
	return nil
}

// RecordDecision applies one pass decision to a hypothesis: appends the
// evidence, applies the fixed confidence delta to both the hypothesis and
// the session running total, and transitions the hypothesis state.
//
// Idempotent per (hypothesisID, pass): a retried call for an already-recorded
// pass is a no-op returning the current session confidence. The hypothesis
// must be INVESTIGATING; recording against a terminal or unknown hypothesis
// fails with ErrInvalidState.
func (l *Ledger) RecordDecision(id uuid.UUID, pass int, d domain.Decision, evidence []domain.Evidence) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.hypotheses[id]
	if !ok {
		return l.confidence, fmt.Errorf("unknown hypothesis %s: %w", id, domain.ErrInvalidState)
	}

	if prev, recorded := l.decisions[id][pass]; recorded {
		if prev != d {
			l.logger.Warn("conflicting decision replay ignored",
				zap.String("hypothesis_id", id.String()),
				zap.Int("pass", pass),
				zap.String("recorded", string(prev)),
				zap.String("replayed", string(d)))
		}
		return l.confidence, nil
	}

	if h.State != domain.StateInvestigating {
		return l.confidence, fmt.Errorf("hypothesis %s is %s, not %s: %w", id, h.State, domain.StateInvestigating, domain.ErrInvalidState)
	}

	switch d {
	case domain.DecisionAccept, domain.DecisionWeakAccept, domain.DecisionReject,
		domain.DecisionNoProgress, domain.DecisionSaturated:
	default:
		return l.confidence, fmt.Errorf("%w: %q", domain.ErrInvalidDecision, d)
	}

	now := time.Now()
	for _, ev := range evidence {
		ev.HypothesisID = id
		ev.Pass = pass
		ev.Credibility = clamp01(ev.Credibility)
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		if ev.ObservedAt.IsZero() {
			ev.ObservedAt = now
		}
		l.evidence[id] = append(l.evidence[id], ev)
	}
	h.EvidenceCount += len(evidence)

	delta := d.ConfidenceDelta()
	h.Confidence = clamp01(h.Confidence + delta)
	l.confidence = clamp01(l.confidence + delta)

	if l.decisions[id] == nil {
		l.decisions[id] = make(map[int]domain.Decision)
	}
	l.decisions[id][pass] = d

	switch d {
	case domain.DecisionAccept:
		h.State = domain.StateAccepted
		l.acceptsByCategory[h.Category]++
	case domain.DecisionWeakAccept:
		h.State = domain.StateWeakAccepted
	case domain.DecisionReject:
		h.State = domain.StateRejected
		l.rejectsByCategory[h.Category]++
		if l.rejectsByCategory[h.Category] == SaturationRejects {
			l.saturateCategoryLocked(h.Category)
		}
	case domain.DecisionSaturated:
		h.State = domain.StateSaturated
	case domain.DecisionNoProgress:
		if l.rejectsByCategory[h.Category] >= SaturationRejects {
			h.State = domain.StateSaturated
		} else {
			h.State = domain.StateProposed
		}
	}

	l.emitLocked(DeltaEvent{
		SessionID:    l.sessionID,
		HypothesisID: id,
		Pass:         pass,
		Source:       "decision",
		Decision:     d,
		Delta:        delta,
		Confidence:   l.confidence,
	})
	return l.confidence, nil
}

// ApplyBoost applies a bounded context-provider boost to one hypothesis and
// to the session running total. Idempotent per (hypothesisID, pass, source).
// Boosting a terminal or unknown hypothesis fails with ErrInvalidState.
func (l *Ledger) ApplyBoost(id uuid.UUID, pass int, source string, amount float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.hypotheses[id]
	if !ok {
		return l.confidence, fmt.Errorf("unknown hypothesis %s: %w", id, domain.ErrInvalidState)
	}
	if h.State.Terminal() {
		return l.confidence, fmt.Errorf("hypothesis %s is terminal: %w", id, domain.ErrInvalidState)
	}

	key := boostKey{hypothesisID: id, pass: pass, source: source}
	if _, applied := l.boosts[key]; applied {
		return l.confidence, nil
	}
	l.boosts[key] = struct{}{}

	amount = clampBoost(amount)
	h.Confidence = clamp01(h.Confidence + amount)
	l.confidence = clamp01(l.confidence + amount)

	l.emitLocked(DeltaEvent{
		SessionID:    l.sessionID,
		HypothesisID: id,
		Pass:         pass,
		Source:       source,
		Delta:        amount,
		Confidence:   l.confidence,
	})
	return l.confidence, nil
}

// ApplySessionBoost applies a bounded boost to the session running total
// without targeting a hypothesis. Idempotent per (pass, source).
func (l *Ledger) ApplySessionBoost(pass int, source string, amount float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := boostKey{hypothesisID: uuid.Nil, pass: pass, source: source}
	if _, applied := l.boosts[key]; applied {
		return l.confidence
	}
	l.boosts[key] = struct{}{}

	amount = clampBoost(amount)
	l.confidence = clamp01(l.confidence + amount)

	l.emitLocked(DeltaEvent{
		SessionID:  l.sessionID,
		Pass:       pass,
		Source:     source,
		Delta:      amount,
		Confidence: l.confidence,
	})
	return l.confidence
}

// CategorySaturated reports whether a category has accumulated enough
// rejections to be excluded from dispatch.
func (l *Ledger) CategorySaturated(c domain.Category) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rejectsByCategory[c] >= SaturationRejects
}

// GateSatisfied reports whether the actionable gate holds: at least 2 ACCEPT
// decisions across at least 2 distinct categories.
func (l *Ledger) GateSatisfied() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, n := range l.acceptsByCategory {
		total += n
	}
	return total >= 2 && len(l.acceptsByCategory) >= 2
}

// saturateCategoryLocked transitions every PROPOSED hypothesis of a category
// to SATURATED. In-flight investigations are left to settle through their own
// RecordDecision; terminal hypotheses are immutable and keep their state.
func (l *Ledger) saturateCategoryLocked(c domain.Category) {
	n := 0
	for _, h := range l.hypotheses {
		if h.Category != c || h.State != domain.StateProposed {
			continue
		}
		h.State = domain.StateSaturated
		n++
	}
	l.logger.Info("category saturated",
		zap.String("session_id", l.sessionID.String()),
		zap.String("category", string(c)),
		zap.Int("hypotheses_saturated", n))
}

func (l *Ledger) emitLocked(ev DeltaEvent) {
	if l.observer == nil {
		return
	}
	select {
	case l.observer <- ev:
	default:
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampBoost(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > MaxBoost {
		return MaxBoost
	}
	return v
}

func sortHypotheses(hs []domain.Hypothesis) {
	sort.Slice(hs, func(i, j int) bool {
		if hs[i].OriginPass != hs[j].OriginPass {
			return hs[i].OriginPass < hs[j].OriginPass
		}
		return bytes.Compare(hs[i].ID[:], hs[j].ID[:]) < 0
	})
}
