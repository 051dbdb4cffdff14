package engine

import (
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/riddlematch/game/clock"
)

type renderLog struct {
	states []*GameState
}

func (r *renderLog) Render(state *GameState) {
	r.states = append(r.states, state)
}

func (r *renderLog) last() *GameState {
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}

func newTestSession(t *testing.T, catalog *Catalog, seed uint64) (*GameSession, *clock.Manual, *renderLog) {
	t.Helper()

	clk := clock.NewManual(time.Unix(0, 0))
	renders := &renderLog{}

	s, err := NewGameSession(catalog,
		WithClock(clk),
		WithRand(NewSeededRand(seed)),
		WithRenderer(renders),
	)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return s, clk, renders
}

func currentAnswer(s *GameSession) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Answer
}

func wrongAnswer(s *GameSession) string {
	want := currentAnswer(s)
	for _, r := range s.catalog.Riddles {
		if r.Answer != want {
			return r.Answer
		}
	}
	return want + "?"
}

func TestNewGameSession(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		s, _, _ := newTestSession(t, DefaultCatalog(), 1)
		if s.GetPhase() != PhaseIdle {
			t.Errorf("Expected idle phase, got %s", s.GetPhase())
		}
		state := s.GetState()
		if state.TimeRemaining != CountdownSeconds {
			t.Errorf("Expected %d seconds, got %d", CountdownSeconds, state.TimeRemaining)
		}
		if state.TotalRiddles != 6 {
			t.Errorf("Expected 6 riddles, got %d", state.TotalRiddles)
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		_, err := NewGameSession(&Catalog{Name: "empty"})
		if err == nil {
			t.Error("Expected error for empty catalog")
		}
	})

	t.Run("catalog is copied", func(t *testing.T) {
		catalog := DefaultCatalog()
		s, _, _ := newTestSession(t, catalog, 1)
		catalog.Riddles[0].Answer = "Mutated"
		if s.GetCatalog().Riddles[0].Answer == "Mutated" {
			t.Error("Session should not share the caller's riddle slice")
		}
	})
}

func TestStart(t *testing.T) {
	s, _, renders := newTestSession(t, DefaultCatalog(), 42)

	state := s.Start()

	if state.Phase != PhaseRiddlePresented {
		t.Errorf("Expected riddle_presented, got %s", state.Phase)
	}
	if state.Score != 0 {
		t.Errorf("Expected score 0, got %d", state.Score)
	}
	if state.RemainingRiddles != 5 {
		t.Errorf("Expected 5 remaining riddles, got %d", state.RemainingRiddles)
	}
	if state.Revealed {
		t.Error("Riddle should start face down")
	}
	if state.Prompt != "" {
		t.Error("Prompt should be hidden until reveal")
	}
	if state.Status != MsgTapToReveal {
		t.Errorf("Expected status %q, got %q", MsgTapToReveal, state.Status)
	}
	if len(state.Icons) != 6 {
		t.Errorf("Expected 6 icon cards, got %d", len(state.Icons))
	}
	if len(renders.states) != 1 {
		t.Errorf("Expected 1 render, got %d", len(renders.states))
	}

	// Remaining plus current is a permutation of the catalog
	seen := []string{currentAnswer(s)}
	for _, r := range s.remaining {
		seen = append(seen, r.Answer)
	}
	var want []string
	for _, r := range DefaultCatalog().Riddles {
		want = append(want, r.Answer)
	}
	sort.Strings(seen)
	sort.Strings(want)
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("Expected permutation of %v, got %v", want, seen)
	}
}

func TestShuffleUniform(t *testing.T) {
	rng := NewSeededRand(7)
	counts := make(map[string]int)
	const rounds = 60000

	for i := 0; i < rounds; i++ {
		items := []int{1, 2, 3}
		Shuffle(rng, items)
		counts[fmt.Sprint(items)]++
	}

	if len(counts) != 6 {
		t.Fatalf("Expected all 6 permutations, got %d", len(counts))
	}
	expected := rounds / 6
	for perm, n := range counts {
		if n < expected*9/10 || n > expected*11/10 {
			t.Errorf("Permutation %s drawn %d times, expected about %d", perm, n, expected)
		}
	}
}

func TestReveal(t *testing.T) {
	t.Run("starts countdown", func(t *testing.T) {
		s, clk, _ := newTestSession(t, DefaultCatalog(), 1)
		s.Start()

		if !s.Reveal() {
			t.Fatal("Reveal should be accepted")
		}
		state := s.GetState()
		if state.Phase != PhaseRiddleRevealed {
			t.Errorf("Expected riddle_revealed, got %s", state.Phase)
		}
		if state.Prompt == "" {
			t.Error("Prompt should be visible after reveal")
		}
		if state.Status != MsgDragToMatch {
			t.Errorf("Expected status %q, got %q", MsgDragToMatch, state.Status)
		}

		clk.Advance(3 * time.Second)
		if got := s.GetState().TimeRemaining; got != CountdownSeconds-3 {
			t.Errorf("Expected %d seconds left, got %d", CountdownSeconds-3, got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		s, _, renders := newTestSession(t, DefaultCatalog(), 1)
		s.Start()
		s.Reveal()

		before := s.GetState()
		rendersBefore := len(renders.states)

		if s.Reveal() {
			t.Error("Second reveal should be a no-op")
		}
		if !reflect.DeepEqual(before, s.GetState()) {
			t.Error("Second reveal changed the state")
		}
		if len(renders.states) != rendersBefore {
			t.Error("Second reveal should not render")
		}
	})

	t.Run("before start", func(t *testing.T) {
		s, _, _ := newTestSession(t, DefaultCatalog(), 1)
		if s.Reveal() {
			t.Error("Reveal before start should be a no-op")
		}
	})

	t.Run("blocked while input locked", func(t *testing.T) {
		s, clk, _ := newTestSession(t, DefaultCatalog(), 1)
		s.Start()
		s.LockInput()

		if s.Reveal() {
			t.Error("Reveal should be blocked while input is locked")
		}

		s.UnlockInput()
		clk.Advance(UnlockDelay - time.Millisecond)
		if s.Reveal() {
			t.Error("Reveal should stay blocked until the unlock delay elapses")
		}

		clk.Advance(time.Millisecond)
		if !s.Reveal() {
			t.Error("Reveal should be accepted once input unlocks")
		}
	})
}

func TestCountdown(t *testing.T) {
	s, clk, _ := newTestSession(t, DefaultCatalog(), 3)
	s.Start()
	s.Reveal()

	prev := s.GetState().TimeRemaining
	for i := 0; i < CountdownSeconds-1; i++ {
		clk.Advance(time.Second)
		state := s.GetState()
		if state.TimeRemaining >= prev {
			t.Fatalf("Countdown should strictly decrease: %d then %d", prev, state.TimeRemaining)
		}
		if state.TimeRemaining < 0 || state.TimeRemaining > CountdownSeconds {
			t.Fatalf("Countdown out of range: %d", state.TimeRemaining)
		}
		prev = state.TimeRemaining
	}

	if s.GetPhase() != PhaseRiddleRevealed {
		t.Fatalf("Expected riddle_revealed with 1 second left, got %s", s.GetPhase())
	}
}

func TestTimeout(t *testing.T) {
	s, clk, renders := newTestSession(t, DefaultCatalog(), 3)
	s.Start()
	s.Reveal()

	clk.Advance(CountdownSeconds * time.Second)

	state := s.GetState()
	if state.Phase != PhaseTimedOut {
		t.Fatalf("Expected timed_out, got %s", state.Phase)
	}
	if state.TimeRemaining != 0 {
		t.Errorf("Expected 0 seconds left, got %d", state.TimeRemaining)
	}
	if !state.GameOver {
		t.Error("Expected game over")
	}
	if state.Status != MsgTimeUp {
		t.Errorf("Expected status %q, got %q", MsgTimeUp, state.Status)
	}
	if want := "Time ran out! Your final score is 0."; state.Summary != want {
		t.Errorf("Expected summary %q, got %q", want, state.Summary)
	}
	if clk.Pending() != 0 {
		t.Errorf("Expected no pending timers after timeout, got %d", clk.Pending())
	}
	if renders.last().Phase != PhaseTimedOut {
		t.Error("Timeout should be rendered")
	}

	// Countdown has stopped
	clk.Advance(5 * time.Second)
	if s.GetState().TimeRemaining != 0 {
		t.Error("Countdown should not run after timeout")
	}

	if got := s.AttemptMatch(wrongAnswer(s)); got != MatchRejected {
		t.Errorf("Expected rejected match after timeout, got %s", got)
	}
}

func TestTimeoutAfterScoring(t *testing.T) {
	s, clk, _ := newTestSession(t, DefaultCatalog(), 5)
	s.Start()
	s.Reveal()
	s.AttemptMatch(currentAnswer(s))
	clk.Advance(MatchPause)

	s.Reveal()
	clk.Advance(CountdownSeconds * time.Second)

	if want := "Time ran out! Your final score is 1."; s.GetState().Summary != want {
		t.Errorf("Expected summary %q, got %q", want, s.GetState().Summary)
	}
}

func TestAttemptMatchCorrect(t *testing.T) {
	s, clk, _ := newTestSession(t, DefaultCatalog(), 11)
	s.Start()
	s.Reveal()
	clk.Advance(4 * time.Second)

	answer := currentAnswer(s)
	if got := s.AttemptMatch(answer); got != MatchCorrect {
		t.Fatalf("Expected correct match, got %s", got)
	}

	state := s.GetState()
	if state.Score != 1 {
		t.Errorf("Expected score 1, got %d", state.Score)
	}
	if state.Phase != PhaseMatched {
		t.Errorf("Expected matched, got %s", state.Phase)
	}
	if state.Status != MsgMatch {
		t.Errorf("Expected status %q, got %q", MsgMatch, state.Status)
	}
	if len(state.ConsumedIcons) != 1 {
		t.Errorf("Expected 1 consumed icon, got %v", state.ConsumedIcons)
	}

	// Countdown is stopped during the pause
	clk.Advance(MatchPause - time.Millisecond)
	state = s.GetState()
	if state.Phase != PhaseMatched {
		t.Errorf("Expected matched during pause, got %s", state.Phase)
	}
	if state.TimeRemaining != CountdownSeconds-4 {
		t.Errorf("Countdown should stop on match, got %d", state.TimeRemaining)
	}

	clk.Advance(time.Millisecond)
	state = s.GetState()
	if state.Phase != PhaseRiddlePresented {
		t.Errorf("Expected next riddle after pause, got %s", state.Phase)
	}
	if state.TimeRemaining != CountdownSeconds {
		t.Errorf("Expected countdown reset to %d, got %d", CountdownSeconds, state.TimeRemaining)
	}
	if state.Round != 2 {
		t.Errorf("Expected round 2, got %d", state.Round)
	}
	if currentAnswer(s) == answer {
		t.Error("Matched riddle should not be presented again")
	}
}

func TestFullGameComplete(t *testing.T) {
	s, clk, _ := newTestSession(t, DefaultCatalog(), 99)
	s.Start()

	seen := make(map[string]int)
	for i := 0; i < 6; i++ {
		if !s.Reveal() {
			t.Fatalf("Reveal %d was refused", i+1)
		}
		answer := currentAnswer(s)
		seen[answer]++
		if got := s.AttemptMatch(answer); got != MatchCorrect {
			t.Fatalf("Match %d: expected correct, got %s", i+1, got)
		}
		clk.Advance(MatchPause)
	}

	state := s.GetState()
	if state.Phase != PhaseComplete {
		t.Fatalf("Expected complete, got %s", state.Phase)
	}
	if want := "You matched 6 out of 6 community members!"; state.Summary != want {
		t.Errorf("Expected summary %q, got %q", want, state.Summary)
	}
	if state.EndReason != EndComplete {
		t.Errorf("Expected end reason complete, got %s", state.EndReason)
	}
	if len(state.ConsumedIcons) != 6 {
		t.Errorf("Expected all 6 icons consumed, got %d", len(state.ConsumedIcons))
	}
	for _, r := range DefaultCatalog().Riddles {
		if seen[r.Answer] != 1 {
			t.Errorf("Riddle %q presented %d times, expected once", r.Answer, seen[r.Answer])
		}
	}
	if currentAnswer(s) != "" {
		t.Error("Current answer should be cleared when the session ends")
	}
	if clk.Pending() != 0 {
		t.Errorf("Expected no pending timers, got %d", clk.Pending())
	}
}

func TestAttemptMatchIncorrect(t *testing.T) {
	catalog := &Catalog{
		Name: "leader",
		Riddles: []Riddle{
			{Prompt: "I guide and make decisions for others.", Answer: "Leader", Icon: "fa-gavel"},
		},
	}
	s, clk, _ := newTestSession(t, catalog, 1)
	s.Start()
	s.Reveal()
	clk.Advance(3 * time.Second)

	if got := s.AttemptMatch("Citizen"); got != MatchIncorrect {
		t.Fatalf("Expected incorrect match, got %s", got)
	}

	state := s.GetState()
	if state.Phase != PhaseRiddleRevealed {
		t.Errorf("Expected riddle_revealed, got %s", state.Phase)
	}
	if state.Score != 0 {
		t.Errorf("Expected score 0, got %d", state.Score)
	}
	if state.Status != MsgIncorrect || state.Feedback != FeedbackNegative {
		t.Errorf("Expected negative feedback, got %q / %q", state.Status, state.Feedback)
	}

	clk.Advance(FeedbackDuration)
	state = s.GetState()
	if state.Status != MsgDragToMatch || state.Feedback != FeedbackNone {
		t.Errorf("Feedback should clear after %v, got %q / %q", FeedbackDuration, state.Status, state.Feedback)
	}
	if state.TimeRemaining != CountdownSeconds-5 {
		t.Errorf("Countdown should keep running, expected %d got %d", CountdownSeconds-5, state.TimeRemaining)
	}

	if got := s.AttemptMatch("Leader"); got != MatchCorrect {
		t.Errorf("Expected correct match after a miss, got %s", got)
	}
}

func TestAttemptMatchBeforeReveal(t *testing.T) {
	s, _, renders := newTestSession(t, DefaultCatalog(), 8)
	s.Start()

	before := s.GetState()
	rendersBefore := len(renders.states)

	if got := s.AttemptMatch(currentAnswer(s)); got != MatchRejected {
		t.Errorf("Expected rejected, got %s", got)
	}
	if !reflect.DeepEqual(before, s.GetState()) {
		t.Error("Rejected match mutated the session")
	}
	if len(renders.states) != rendersBefore {
		t.Error("Rejected match should not render")
	}

	idle, _, _ := newTestSession(t, DefaultCatalog(), 8)
	if got := idle.AttemptMatch("Government"); got != MatchRejected {
		t.Errorf("Expected rejected before start, got %s", got)
	}
}

func TestMatchWinsOverFinalTick(t *testing.T) {
	s, clk, _ := newTestSession(t, DefaultCatalog(), 21)
	s.Start()
	s.Reveal()
	clk.Advance((CountdownSeconds - 1) * time.Second)

	if got := s.AttemptMatch(currentAnswer(s)); got != MatchCorrect {
		t.Fatalf("Expected correct match with 1 second left, got %s", got)
	}

	clk.Advance(time.Second)
	if s.GetPhase() == PhaseTimedOut {
		t.Fatal("Stale tick timed out a matched riddle")
	}
	if s.GetScore() != 1 {
		t.Errorf("Expected score 1, got %d", s.GetScore())
	}
}

func TestNudge(t *testing.T) {
	t.Run("shown after idle delay", func(t *testing.T) {
		s, clk, _ := newTestSession(t, DefaultCatalog(), 2)
		s.Start()

		clk.Advance(NudgeDelay - time.Millisecond)
		if s.GetState().NudgeVisible {
			t.Error("Nudge shown too early")
		}

		clk.Advance(time.Millisecond)
		state := s.GetState()
		if !state.NudgeVisible {
			t.Error("Expected nudge after idle delay")
		}
		if state.Phase != PhaseRiddlePresented {
			t.Errorf("Nudge should not change phase, got %s", state.Phase)
		}

		s.Reveal()
		if s.GetState().NudgeVisible {
			t.Error("Reveal should hide the nudge")
		}
	})

	t.Run("cancelled by reveal", func(t *testing.T) {
		s, clk, _ := newTestSession(t, DefaultCatalog(), 2)
		s.Start()
		clk.Advance(5 * time.Second)
		s.Reveal()

		clk.Advance(10 * time.Second)
		if s.GetState().NudgeVisible {
			t.Error("Nudge should not fire after reveal")
		}
	})

	t.Run("rescheduled for next riddle", func(t *testing.T) {
		s, clk, _ := newTestSession(t, DefaultCatalog(), 2)
		s.Start()
		s.Reveal()
		s.AttemptMatch(currentAnswer(s))
		clk.Advance(MatchPause)

		clk.Advance(NudgeDelay)
		if !s.GetState().NudgeVisible {
			t.Error("Expected nudge for the next riddle")
		}
	})
}

func TestBeginDrag(t *testing.T) {
	t.Run("refused before reveal", func(t *testing.T) {
		s, clk, _ := newTestSession(t, DefaultCatalog(), 4)
		s.Start()

		if s.BeginDrag() {
			t.Fatal("Drag should be refused before reveal")
		}
		state := s.GetState()
		if state.Status != MsgRevealFirst || state.Feedback != FeedbackNegative {
			t.Errorf("Expected refusal feedback, got %q / %q", state.Status, state.Feedback)
		}
		if state.InputLocked {
			t.Error("Refused drag should not lock input")
		}

		clk.Advance(RefusalDuration)
		if got := s.GetState().Status; got != MsgTapToReveal {
			t.Errorf("Expected status restored to %q, got %q", MsgTapToReveal, got)
		}
	})

	t.Run("locks input after reveal", func(t *testing.T) {
		s, clk, _ := newTestSession(t, DefaultCatalog(), 4)
		s.Start()
		s.Reveal()

		if !s.BeginDrag() {
			t.Fatal("Drag should be accepted after reveal")
		}
		if !s.GetState().InputLocked {
			t.Error("Accepted drag should lock input")
		}

		s.AttemptMatch(currentAnswer(s))
		s.UnlockInput()
		clk.Advance(UnlockDelay)
		if s.GetState().InputLocked {
			t.Error("Input should unlock after the delay")
		}

		clk.Advance(MatchPause)
		if !s.Reveal() {
			t.Error("Next riddle should be revealable")
		}
	})

	t.Run("relock cancels pending unlock", func(t *testing.T) {
		s, clk, _ := newTestSession(t, DefaultCatalog(), 4)
		s.Start()
		s.Reveal()
		s.BeginDrag()
		s.UnlockInput()
		s.BeginDrag()

		clk.Advance(UnlockDelay)
		if !s.GetState().InputLocked {
			t.Error("A new drag should cancel the pending unlock")
		}
	})
}

func TestEnd(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		s, clk, renders := newTestSession(t, DefaultCatalog(), 6)
		s.Start()
		s.Reveal()

		s.End(EndTimedOut)
		first := s.GetState()
		rendered := len(renders.states)

		s.End(EndTimedOut)
		s.End(EndComplete)
		if !reflect.DeepEqual(first, s.GetState()) {
			t.Error("Ending twice changed the state")
		}
		if len(renders.states) != rendered {
			t.Error("Ending twice should not render again")
		}
		if clk.Pending() != 0 {
			t.Errorf("End should cancel every timer, %d pending", clk.Pending())
		}
	})

	t.Run("timed out from outside reports time up", func(t *testing.T) {
		s, _, renders := newTestSession(t, DefaultCatalog(), 6)
		s.Start()

		s.End(EndTimedOut)
		last := renders.last()
		if last.Phase != PhaseTimedOut || !last.GameOver {
			t.Fatalf("Expected a timed out render, got %s", last.Phase)
		}
		if last.Status != MsgTimeUp || last.Feedback != FeedbackNegative {
			t.Errorf("Expected time up status, got %q (%s)", last.Status, last.Feedback)
		}
		if last.Summary != "Time ran out! Your final score is 0." {
			t.Errorf("Unexpected summary %q", last.Summary)
		}
	})

	t.Run("complete summary uses catalog subject", func(t *testing.T) {
		catalog := &Catalog{
			Name:    "ocean",
			Subject: "sea creatures",
			Riddles: []Riddle{{Prompt: "I have eight arms.", Answer: "Octopus", Icon: "fa-octopus"}},
		}
		s, _, _ := newTestSession(t, catalog, 6)
		s.Start()
		s.End(EndComplete)

		if want := "You matched 0 out of 1 sea creatures!"; s.GetState().Summary != want {
			t.Errorf("Expected summary %q, got %q", want, s.GetState().Summary)
		}
	})
}

func TestRestartCancelsPendingTasks(t *testing.T) {
	s, clk, _ := newTestSession(t, DefaultCatalog(), 13)
	s.Start()
	s.Reveal()
	s.AttemptMatch(wrongAnswer(s))
	clk.Advance(5 * time.Second)

	s.Start()
	state := s.GetState()
	if state.Phase != PhaseRiddlePresented || state.Score != 0 || state.TimeRemaining != CountdownSeconds {
		t.Fatalf("Restart did not reset the session: %+v", state)
	}

	clk.Advance(5 * time.Second)
	state = s.GetState()
	if state.TimeRemaining != CountdownSeconds {
		t.Errorf("Old countdown kept running after restart: %d", state.TimeRemaining)
	}
	if state.Status != MsgTapToReveal {
		t.Errorf("Old feedback task fired after restart: %q", state.Status)
	}

	// Restart after game over
	s.End(EndTimedOut)
	s.Start()
	if s.GetPhase() != PhaseRiddlePresented {
		t.Errorf("Expected restart after game over, got %s", s.GetPhase())
	}
}

func TestTickIgnoredUnlessRevealed(t *testing.T) {
	s, _, _ := newTestSession(t, DefaultCatalog(), 17)
	s.Tick()
	s.Start()
	s.Tick()

	if got := s.GetState().TimeRemaining; got != CountdownSeconds {
		t.Errorf("Tick before reveal changed the countdown to %d", got)
	}

	s.Reveal()
	s.Tick()
	if got := s.GetState().TimeRemaining; got != CountdownSeconds-1 {
		t.Errorf("Expected %d after a manual tick, got %d", CountdownSeconds-1, got)
	}
}

func TestScoreInvariantsUnderRandomPlay(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		s, clk, renders := newTestSession(t, DefaultCatalog(), seed)
		actions := NewSeededRand(seed * 31)
		s.Start()

		for step := 0; step < 400 && !s.IsGameOver(); step++ {
			switch actions.IntN(6) {
			case 0:
				s.Reveal()
			case 1:
				s.AttemptMatch(currentAnswer(s))
			case 2:
				s.AttemptMatch(wrongAnswer(s))
			case 3:
				if s.BeginDrag() {
					s.UnlockInput()
				}
			case 4:
				clk.Advance(time.Duration(actions.IntN(3000)) * time.Millisecond)
			case 5:
				clk.Advance(time.Second)
			}
		}

		prevScore := 0
		for _, state := range renders.states {
			if state.Score < prevScore {
				t.Fatalf("seed %d: score decreased from %d to %d", seed, prevScore, state.Score)
			}
			if state.Score > state.TotalRiddles {
				t.Fatalf("seed %d: score %d exceeds %d riddles", seed, state.Score, state.TotalRiddles)
			}
			if state.TimeRemaining < 0 || state.TimeRemaining > CountdownSeconds {
				t.Fatalf("seed %d: countdown out of range: %d", seed, state.TimeRemaining)
			}
			prevScore = state.Score
		}
	}
}
