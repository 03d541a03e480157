// Package debate orchestrates debate sessions between LLM-backed agents.
package debate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/podiumlabs/podium/internal/core"
	"github.com/podiumlabs/podium/internal/llm"
	"github.com/podiumlabs/podium/internal/storage"
	"github.com/podiumlabs/podium/internal/topic"
)

// Config holds orchestration settings.
type Config struct {
	// MaxTurnsPerSide is the number of argument turns each debater gets.
	MaxTurnsPerSide int

	// TimeBudget is the wall-clock ceiling for one whole debate.
	TimeBudget time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxTurnsPerSide: 3,
		TimeBudget:      15 * time.Minute,
	}
}

// Backgrounder looks up background information for a topic. Optional;
// lookup failures only leave the moderator without background material.
type Backgrounder interface {
	Background(ctx context.Context, topic string) (string, error)
}

// handle pairs a debate with its cancellation flag. Cancellation is a
// flag rather than a context cancel so that it takes effect at the next
// turn boundary instead of killing an in-flight completion call.
type handle struct {
	debate    *core.Debate
	cancelled atomic.Bool
}

// Engine runs debates from start to finish and owns the debate registry.
type Engine struct {
	mu      sync.RWMutex
	debates map[string]*handle

	topics     topic.Source
	background Backgrounder
	completer  llm.Completer
	sink       storage.Sink
	cfg        Config
}

// New creates a debate engine. background may be nil.
func New(topics topic.Source, completer llm.Completer, sink storage.Sink, background Backgrounder, cfg Config) *Engine {
	if cfg.MaxTurnsPerSide <= 0 {
		cfg.MaxTurnsPerSide = DefaultConfig().MaxTurnsPerSide
	}
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = DefaultConfig().TimeBudget
	}
	return &Engine{
		debates:    make(map[string]*handle),
		topics:     topics,
		background: background,
		completer:  completer,
		sink:       sink,
		cfg:        cfg,
	}
}

// Debater namesakes, assigned at random when a debate is created.
var (
	proNames = []string{"Socrates", "Aristotle", "Plato", "Kant", "Locke"}
	conNames = []string{"Nietzsche", "Hume", "Russell", "Rousseau", "Mill"}
)

// StartDebate obtains a topic, registers a new debate and kicks off its
// turn loop in the background. The id is returned immediately; callers
// poll GetStatus for progress. If no topic source can produce a topic,
// the debate is created directly in the failed state with the reason
// recorded, and the id still refers to that record.
func (e *Engine) StartDebate(ctx context.Context, topicHint string) (string, error) {
	now := time.Now()
	d := &core.Debate{
		ID:        uuid.NewString(),
		ProName:   "Pro-" + proNames[rand.Intn(len(proNames))],
		ConName:   "Con-" + conNames[rand.Intn(len(conNames))],
		Status:    core.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	topicStr, err := e.topics.Topic(ctx, topicHint)
	if err != nil {
		d.Status = core.StatusFailed
		d.FailureReason = fmt.Sprintf("topic unavailable: %v", err)
		d.CompletedAt = &now
		e.register(d)
		e.persist(d.ID)
		slog.Warn("Debate failed before start", "id", d.ID, "reason", d.FailureReason)
		return d.ID, nil
	}

	d.Topic = topicStr
	e.register(d)
	slog.Info("Debate created", "id", d.ID, "topic", topicStr)

	go e.run(d.ID)

	return d.ID, nil
}

func (e *Engine) register(d *core.Debate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debates[d.ID] = &handle{debate: d}
}

// GetStatus returns a snapshot of the debate's current state.
func (e *Engine) GetStatus(id string) (*core.Debate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.debates[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return h.debate.Clone(), nil
}

// ListDebates returns summaries of all known debates, most-recently-created
// first.
func (e *Engine) ListDebates() []*core.DebateSummary {
	e.mu.RLock()
	summaries := make([]*core.DebateSummary, 0, len(e.debates))
	for _, h := range e.debates {
		summaries = append(summaries, h.debate.Summary())
	}
	e.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// Cancel requests cancellation of a debate. The request takes effect at
// the next turn boundary.
func (e *Engine) Cancel(id string) error {
	e.mu.RLock()
	h, ok := e.debates[id]
	var status core.Status
	if ok {
		status = h.debate.Status
	}
	e.mu.RUnlock()
	if !ok {
		return core.ErrNotFound
	}
	if status.Terminal() {
		return fmt.Errorf("debate is already %s", status)
	}
	h.cancelled.Store(true)
	slog.Info("Debate cancellation requested", "id", id)
	return nil
}

// Restore hydrates the registry with debates persisted by a previous run.
// In-memory debates are never overwritten.
func (e *Engine) Restore() error {
	if e.sink == nil {
		return nil
	}
	summaries, err := e.sink.List(1000, 0)
	if err != nil {
		return fmt.Errorf("list persisted debates: %w", err)
	}
	for _, s := range summaries {
		e.mu.RLock()
		_, exists := e.debates[s.ID]
		e.mu.RUnlock()
		if exists {
			continue
		}
		d, err := e.sink.Get(s.ID)
		if err != nil {
			return fmt.Errorf("load debate %s: %w", s.ID, err)
		}
		if d != nil {
			e.register(d)
		}
	}
	return nil
}

// run drives one debate through its full turn sequence. It is the only
// goroutine that mutates this debate.
func (e *Engine) run(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.TimeBudget)
	defer cancel()

	e.transitionRunning(id)
	e.lookupBackground(ctx, id)

	plan := turnPlan(e.cfg.MaxTurnsPerSide)
	for seq, role := range plan {
		if reason, stopped := e.checkBoundary(ctx, id); stopped {
			e.fail(id, reason)
			return
		}

		d, err := e.GetStatus(id)
		if err != nil {
			return
		}
		prompt := buildPrompt(role, d)

		content, err := e.completer.Complete(ctx, role, prompt)
		if err != nil {
			e.fail(id, fmt.Sprintf("turn %d (%s) failed: %v", seq, role, err))
			return
		}

		e.appendTurn(id, role, content)
		slog.Debug("Turn completed", "id", id, "seq", seq, "role", role)
	}

	if reason, stopped := e.checkBoundary(ctx, id); stopped {
		e.fail(id, reason)
		return
	}

	verdict, note := e.judge(ctx, id)
	e.complete(id, verdict, note)
}

// turnPlan returns the ordered role sequence for a debate: a moderator
// introduction, alternating pro/con arguments, and a closing fact check.
func turnPlan(turnsPerSide int) []core.Role {
	plan := []core.Role{core.RoleModerator}
	for i := 0; i < turnsPerSide; i++ {
		plan = append(plan, core.RolePro, core.RoleCon)
	}
	return append(plan, core.RoleFactChecker)
}

// checkBoundary reports whether the debate must stop before the next
// turn, and with what failure reason.
func (e *Engine) checkBoundary(ctx context.Context, id string) (string, bool) {
	e.mu.RLock()
	h, ok := e.debates[id]
	e.mu.RUnlock()
	if !ok {
		return "", true
	}
	if h.cancelled.Load() {
		return "cancelled", true
	}
	if ctx.Err() != nil {
		return "debate time budget exceeded", true
	}
	return "", false
}

// judge issues the scorekeeper call over the full transcript and parses
// the verdict. Any failure here is non-fatal: the debate still completes,
// just without a winner determination.
func (e *Engine) judge(ctx context.Context, id string) (*core.Verdict, string) {
	d, err := e.GetStatus(id)
	if err != nil {
		return nil, err.Error()
	}

	raw, err := e.completer.Complete(ctx, core.RoleScorekeeper, buildPrompt(core.RoleScorekeeper, d))
	if err != nil {
		slog.Error("Scorekeeper call failed", "id", id, "error", err)
		return nil, fmt.Sprintf("scorekeeper call failed: %v", err)
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		slog.Warn("Scorekeeper response did not parse", "id", id, "error", err)
		return nil, fmt.Sprintf("verdict parse failed: %v", err)
	}
	return verdict, ""
}

func (e *Engine) transitionRunning(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.debates[id]
	if !ok {
		return
	}
	h.debate.Status = core.StatusRunning
	h.debate.UpdatedAt = time.Now()
}

func (e *Engine) lookupBackground(ctx context.Context, id string) {
	if e.background == nil {
		return
	}
	d, err := e.GetStatus(id)
	if err != nil {
		return
	}
	bg, err := e.background.Background(ctx, d.Topic)
	if err != nil {
		slog.Debug("Background lookup failed", "id", id, "error", err)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.debates[id]; ok {
		h.debate.Background = bg
	}
}

func (e *Engine) appendTurn(id string, role core.Role, content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.debates[id]
	if !ok {
		return
	}
	now := time.Now()
	h.debate.Transcript = append(h.debate.Transcript, core.Turn{
		Role:      role,
		Seq:       len(h.debate.Transcript),
		Content:   content,
		CreatedAt: now,
	})
	h.debate.UpdatedAt = now
}

// fail moves the debate to its failed terminal state. The partial
// transcript is retained for diagnosis; the debate is not resumable.
func (e *Engine) fail(id, reason string) {
	e.mu.Lock()
	h, ok := e.debates[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	now := time.Now()
	h.debate.Status = core.StatusFailed
	h.debate.FailureReason = reason
	h.debate.UpdatedAt = now
	h.debate.CompletedAt = &now
	e.mu.Unlock()

	slog.Info("Debate failed", "id", id, "reason", reason)
	e.persist(id)
}

func (e *Engine) complete(id string, verdict *core.Verdict, note string) {
	e.mu.Lock()
	h, ok := e.debates[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	now := time.Now()
	h.debate.Status = core.StatusCompleted
	h.debate.Verdict = verdict
	h.debate.VerdictNote = note
	h.debate.UpdatedAt = now
	h.debate.CompletedAt = &now
	e.mu.Unlock()

	slog.Info("Debate completed", "id", id, "has_verdict", verdict != nil)
	e.persist(id)
}

// persist writes the terminal snapshot to the sink. Persistence is
// best-effort relative to orchestration: a save failure is surfaced only
// as a warning annotation on the snapshot.
func (e *Engine) persist(id string) {
	if e.sink == nil {
		return
	}
	snapshot, err := e.GetStatus(id)
	if err != nil {
		return
	}
	if err := e.sink.Save(snapshot); err != nil {
		slog.Error("Failed to persist debate", "id", id, "error", err)
		e.mu.Lock()
		if h, ok := e.debates[id]; ok {
			h.debate.StorageWarning = fmt.Sprintf("durable save failed: %v", err)
		}
		e.mu.Unlock()
	}
}
