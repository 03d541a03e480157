package debate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/podiumlabs/podium/internal/core"
	"github.com/podiumlabs/podium/internal/llm"
	"github.com/podiumlabs/podium/internal/topic"
)

// stubTopics always returns the same topic, or an error.
type stubTopics struct {
	topic string
	err   error
}

func (s *stubTopics) Topic(_ context.Context, _ string) (string, error) {
	return s.topic, s.err
}

// stubCompleter runs a per-call function and counts invocations per role.
type stubCompleter struct {
	mu    sync.Mutex
	calls map[core.Role]int
	fn    func(ctx context.Context, role core.Role, calls int) (string, error)
}

func (s *stubCompleter) Complete(ctx context.Context, role core.Role, prompt string) (string, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[core.Role]int)
	}
	s.calls[role]++
	n := s.calls[role]
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(ctx, role, n)
	}
	return fmt.Sprintf("%s response %d", role, n), nil
}

func (s *stubCompleter) count(role core.Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[role]
}

// goodVerdict is a scorekeeper response the parser accepts.
const goodVerdict = "PRO SCORE: 85\nCON SCORE: 72\nWINNER: Pro"

func scoringCompleter() *stubCompleter {
	return &stubCompleter{fn: func(_ context.Context, role core.Role, _ int) (string, error) {
		if role == core.RoleScorekeeper {
			return goodVerdict, nil
		}
		return string(role) + " argument", nil
	}}
}

// memorySink records saves in memory.
type memorySink struct {
	mu      sync.Mutex
	saves   map[string]int
	debates map[string]*core.Debate
	saveErr error
}

func newMemorySink() *memorySink {
	return &memorySink{
		saves:   make(map[string]int),
		debates: make(map[string]*core.Debate),
	}
}

func (m *memorySink) Initialize() error { return nil }
func (m *memorySink) Close() error      { return nil }

func (m *memorySink) Save(d *core.Debate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves[d.ID]++
	m.debates[d.ID] = d.Clone()
	return nil
}

func (m *memorySink) Get(id string) (*core.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

func (m *memorySink) List(limit, offset int) ([]*core.DebateSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.DebateSummary
	for _, d := range m.debates {
		out = append(out, d.Summary())
	}
	return out, nil
}

func (m *memorySink) saveCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[id]
}

// waitTerminal polls until the debate reaches a terminal state.
func waitTerminal(t *testing.T, e *Engine, id string) *core.Debate {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		d, err := e.GetStatus(id)
		if err != nil {
			t.Fatalf("GetStatus failed: %v", err)
		}
		if d.Status.Terminal() {
			return d
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("debate did not reach a terminal state in time")
	return nil
}

func TestTurnPlan(t *testing.T) {
	plan := turnPlan(2)
	want := []core.Role{
		core.RoleModerator,
		core.RolePro, core.RoleCon,
		core.RolePro, core.RoleCon,
		core.RoleFactChecker,
	}
	if len(plan) != len(want) {
		t.Fatalf("plan length mismatch: got %d, want %d", len(plan), len(want))
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Errorf("plan[%d] mismatch: got %s, want %s", i, plan[i], want[i])
		}
	}
}

func TestEngineCompletesDebate(t *testing.T) {
	completer := scoringCompleter()
	sink := newMemorySink()
	e := New(&stubTopics{topic: "Should homework be banned?"}, completer, sink, nil, Config{MaxTurnsPerSide: 2})

	id, err := e.StartDebate(context.Background(), "")
	if err != nil {
		t.Fatalf("StartDebate failed: %v", err)
	}

	d := waitTerminal(t, e, id)

	if d.Status != core.StatusCompleted {
		t.Fatalf("Status mismatch: got %s, want %s (reason: %s)", d.Status, core.StatusCompleted, d.FailureReason)
	}
	if d.Topic != "Should homework be banned?" {
		t.Errorf("Topic mismatch: got %q", d.Topic)
	}
	if !strings.HasPrefix(d.ProName, "Pro-") || !strings.HasPrefix(d.ConName, "Con-") {
		t.Errorf("debater names not assigned: pro=%q con=%q", d.ProName, d.ConName)
	}

	// moderator + 2*(pro, con) + fact checker
	if len(d.Transcript) != 6 {
		t.Fatalf("Transcript length mismatch: got %d, want 6", len(d.Transcript))
	}
	for i, turn := range d.Transcript {
		if turn.Seq != i {
			t.Errorf("turn %d: Seq mismatch: got %d", i, turn.Seq)
		}
	}
	if d.Transcript[0].Role != core.RoleModerator {
		t.Errorf("first turn role mismatch: got %s", d.Transcript[0].Role)
	}
	if d.Transcript[5].Role != core.RoleFactChecker {
		t.Errorf("last turn role mismatch: got %s", d.Transcript[5].Role)
	}

	if d.Verdict == nil {
		t.Fatal("expected verdict")
	}
	if d.Verdict.Winner != core.WinnerPro {
		t.Errorf("Winner mismatch: got %s", d.Verdict.Winner)
	}
	if d.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	// The scorekeeper is consulted once and never appears in the transcript.
	if completer.count(core.RoleScorekeeper) != 1 {
		t.Errorf("scorekeeper calls: got %d, want 1", completer.count(core.RoleScorekeeper))
	}
	for _, turn := range d.Transcript {
		if turn.Role == core.RoleScorekeeper {
			t.Error("scorekeeper turn found in transcript")
		}
	}

	// Saved exactly once, at the terminal transition.
	if n := sink.saveCount(id); n != 1 {
		t.Errorf("save count mismatch: got %d, want 1", n)
	}
	if d.StorageWarning != "" {
		t.Errorf("unexpected storage warning: %s", d.StorageWarning)
	}
}

func TestEngineCompleterFailure(t *testing.T) {
	completer := &stubCompleter{fn: func(_ context.Context, role core.Role, _ int) (string, error) {
		if role == core.RoleCon {
			return "", &llm.UpstreamError{StatusCode: 401, Message: "invalid api key"}
		}
		return string(role) + " argument", nil
	}}
	sink := newMemorySink()
	e := New(&stubTopics{topic: "Should zoos exist?"}, completer, sink, nil, Config{MaxTurnsPerSide: 2})

	id, err := e.StartDebate(context.Background(), "")
	if err != nil {
		t.Fatalf("StartDebate failed: %v", err)
	}

	d := waitTerminal(t, e, id)

	if d.Status != core.StatusFailed {
		t.Fatalf("Status mismatch: got %s, want %s", d.Status, core.StatusFailed)
	}
	if !strings.Contains(d.FailureReason, "turn 2") {
		t.Errorf("FailureReason should name the failing turn: %q", d.FailureReason)
	}
	// Partial transcript retained: moderator + first pro turn.
	if len(d.Transcript) != 2 {
		t.Errorf("Transcript length mismatch: got %d, want 2", len(d.Transcript))
	}
	if n := sink.saveCount(id); n != 1 {
		t.Errorf("save count mismatch: got %d, want 1", n)
	}
}

func TestEngineTopicUnavailable(t *testing.T) {
	sink := newMemorySink()
	e := New(&stubTopics{err: topic.ErrTopicUnavailable}, scoringCompleter(), sink, nil, Config{})

	id, err := e.StartDebate(context.Background(), "")
	if err != nil {
		t.Fatalf("StartDebate returned error: %v", err)
	}

	d, err := e.GetStatus(id)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if d.Status != core.StatusFailed {
		t.Errorf("Status mismatch: got %s, want %s", d.Status, core.StatusFailed)
	}
	if !strings.Contains(d.FailureReason, "topic unavailable") {
		t.Errorf("FailureReason mismatch: %q", d.FailureReason)
	}
	if len(d.Transcript) != 0 {
		t.Errorf("expected empty transcript, got %d turns", len(d.Transcript))
	}
	if n := sink.saveCount(id); n != 1 {
		t.Errorf("save count mismatch: got %d, want 1", n)
	}
}

func TestEngineUnparseableVerdict(t *testing.T) {
	completer := &stubCompleter{fn: func(_ context.Context, role core.Role, _ int) (string, error) {
		if role == core.RoleScorekeeper {
			return "What a wonderful debate. Everybody wins!", nil
		}
		return string(role) + " argument", nil
	}}
	e := New(&stubTopics{topic: "Should voting be mandatory?"}, completer, newMemorySink(), nil, Config{MaxTurnsPerSide: 1})

	id, _ := e.StartDebate(context.Background(), "")
	d := waitTerminal(t, e, id)

	if d.Status != core.StatusCompleted {
		t.Fatalf("Status mismatch: got %s, want %s", d.Status, core.StatusCompleted)
	}
	if d.Verdict != nil {
		t.Errorf("expected nil verdict, got %+v", d.Verdict)
	}
	if !strings.Contains(d.VerdictNote, "verdict parse failed") {
		t.Errorf("VerdictNote mismatch: %q", d.VerdictNote)
	}
}

func TestEngineScorekeeperCallFails(t *testing.T) {
	completer := &stubCompleter{fn: func(_ context.Context, role core.Role, _ int) (string, error) {
		if role == core.RoleScorekeeper {
			return "", errors.New("upstream unavailable")
		}
		return string(role) + " argument", nil
	}}
	e := New(&stubTopics{topic: "Should tipping be abolished?"}, completer, newMemorySink(), nil, Config{MaxTurnsPerSide: 1})

	id, _ := e.StartDebate(context.Background(), "")
	d := waitTerminal(t, e, id)

	if d.Status != core.StatusCompleted {
		t.Fatalf("Status mismatch: got %s, want %s", d.Status, core.StatusCompleted)
	}
	if d.Verdict != nil {
		t.Errorf("expected nil verdict, got %+v", d.Verdict)
	}
	if !strings.Contains(d.VerdictNote, "scorekeeper call failed") {
		t.Errorf("VerdictNote mismatch: %q", d.VerdictNote)
	}
}

func TestEngineCancel(t *testing.T) {
	// Gate each completion so the test can cancel between turns.
	started := make(chan core.Role, 16)
	release := make(chan struct{})
	completer := &stubCompleter{fn: func(_ context.Context, role core.Role, _ int) (string, error) {
		started <- role
		<-release
		return string(role) + " argument", nil
	}}
	e := New(&stubTopics{topic: "Should school start later?"}, completer, newMemorySink(), nil, Config{MaxTurnsPerSide: 3})

	id, err := e.StartDebate(context.Background(), "")
	if err != nil {
		t.Fatalf("StartDebate failed: %v", err)
	}

	// Let the moderator turn start, cancel while it is in flight, then
	// release it. The in-flight turn must finish and land in the
	// transcript; the pro turn must never start.
	<-started
	if err := e.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	close(release)

	d := waitTerminal(t, e, id)

	if d.Status != core.StatusFailed {
		t.Fatalf("Status mismatch: got %s, want %s", d.Status, core.StatusFailed)
	}
	if d.FailureReason != "cancelled" {
		t.Errorf("FailureReason mismatch: got %q, want %q", d.FailureReason, "cancelled")
	}
	if len(d.Transcript) != 1 {
		t.Errorf("Transcript length mismatch: got %d, want 1", len(d.Transcript))
	}
	if completer.count(core.RolePro) != 0 {
		t.Errorf("pro turn started after cancellation")
	}

	// A second cancel on the now-terminal debate is rejected, and the
	// error names the status the debate ended in.
	err = e.Cancel(id)
	if err == nil {
		t.Fatal("expected error cancelling a terminal debate")
	}
	if !strings.Contains(err.Error(), string(core.StatusFailed)) {
		t.Errorf("error should name the terminal status: %v", err)
	}
}

func TestEngineCancelUnknown(t *testing.T) {
	e := New(&stubTopics{topic: "x"}, scoringCompleter(), nil, nil, Config{})
	if err := e.Cancel("missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEngineTimeBudget(t *testing.T) {
	e := New(&stubTopics{topic: "Should cash be phased out?"}, scoringCompleter(), nil, nil, Config{
		MaxTurnsPerSide: 1,
		TimeBudget:      time.Nanosecond,
	})

	id, _ := e.StartDebate(context.Background(), "")
	d := waitTerminal(t, e, id)

	if d.Status != core.StatusFailed {
		t.Fatalf("Status mismatch: got %s, want %s", d.Status, core.StatusFailed)
	}
	if d.FailureReason != "debate time budget exceeded" {
		t.Errorf("FailureReason mismatch: got %q", d.FailureReason)
	}
}

func TestEngineGetStatusUnknown(t *testing.T) {
	e := New(&stubTopics{topic: "x"}, scoringCompleter(), nil, nil, Config{})
	if _, err := e.GetStatus("missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEngineSnapshotIsolation(t *testing.T) {
	e := New(&stubTopics{topic: "Should juries be professional?"}, scoringCompleter(), nil, nil, Config{MaxTurnsPerSide: 1})

	id, _ := e.StartDebate(context.Background(), "")
	d := waitTerminal(t, e, id)

	// Mutating a snapshot must not leak into the engine's copy.
	d.Transcript[0].Content = "tampered"
	d.Verdict.Scores[core.RolePro] = 0

	fresh, err := e.GetStatus(id)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if fresh.Transcript[0].Content == "tampered" {
		t.Error("snapshot mutation leaked into engine state")
	}
	if fresh.Verdict.Scores[core.RolePro] == 0 {
		t.Error("verdict mutation leaked into engine state")
	}
}

func TestEngineListDebates(t *testing.T) {
	e := New(&stubTopics{topic: "Should streets be car-free?"}, scoringCompleter(), nil, nil, Config{MaxTurnsPerSide: 1})

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := e.StartDebate(context.Background(), "")
		if err != nil {
			t.Fatalf("StartDebate failed: %v", err)
		}
		ids = append(ids, id)
		waitTerminal(t, e, id)
		time.Sleep(2 * time.Millisecond)
	}

	summaries := e.ListDebates()
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	// Most recently created first.
	if summaries[0].ID != ids[2] {
		t.Errorf("order mismatch: got %s first, want %s", summaries[0].ID, ids[2])
	}
	for i := 1; i < len(summaries); i++ {
		if summaries[i].CreatedAt.After(summaries[i-1].CreatedAt) {
			t.Errorf("summaries not sorted by CreatedAt desc at index %d", i)
		}
	}
}

func TestEngineStorageWarning(t *testing.T) {
	sink := newMemorySink()
	sink.saveErr = errors.New("disk full")
	e := New(&stubTopics{topic: "Should gyms be free?"}, scoringCompleter(), sink, nil, Config{MaxTurnsPerSide: 1})

	id, _ := e.StartDebate(context.Background(), "")
	d := waitTerminal(t, e, id)

	// The debate still completes; the save failure is only an annotation.
	if d.Status != core.StatusCompleted {
		t.Fatalf("Status mismatch: got %s, want %s", d.Status, core.StatusCompleted)
	}

	// The warning is applied after the terminal transition; poll for it.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		d, _ = e.GetStatus(id)
		if d.StorageWarning != "" {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !strings.Contains(d.StorageWarning, "disk full") {
		t.Errorf("StorageWarning mismatch: %q", d.StorageWarning)
	}
}

func TestEngineRestore(t *testing.T) {
	sink := newMemorySink()
	e := New(&stubTopics{topic: "Should museums charge admission?"}, scoringCompleter(), sink, nil, Config{MaxTurnsPerSide: 1})

	id, _ := e.StartDebate(context.Background(), "")
	waitTerminal(t, e, id)

	// A fresh engine backed by the same sink sees the finished debate.
	e2 := New(&stubTopics{topic: "x"}, scoringCompleter(), sink, nil, Config{})
	if err := e2.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	d, err := e2.GetStatus(id)
	if err != nil {
		t.Fatalf("GetStatus after restore failed: %v", err)
	}
	if d.Status != core.StatusCompleted {
		t.Errorf("Status mismatch: got %s, want %s", d.Status, core.StatusCompleted)
	}
	if len(d.Transcript) != 4 {
		t.Errorf("Transcript length mismatch: got %d, want 4", len(d.Transcript))
	}
}

func TestEngineBackground(t *testing.T) {
	bg := backgrounderFunc(func(_ context.Context, topic string) (string, error) {
		return "Context on " + topic, nil
	})
	e := New(&stubTopics{topic: "Should esports be in the Olympics?"}, scoringCompleter(), nil, bg, Config{MaxTurnsPerSide: 1})

	id, _ := e.StartDebate(context.Background(), "")
	d := waitTerminal(t, e, id)

	if d.Background != "Context on Should esports be in the Olympics?" {
		t.Errorf("Background mismatch: %q", d.Background)
	}
}

type backgrounderFunc func(ctx context.Context, topic string) (string, error)

func (f backgrounderFunc) Background(ctx context.Context, topic string) (string, error) {
	return f(ctx, topic)
}
