package engine

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/wricardo/mcp-training/riddlematch/game/clock"
)

// Engine provides the gesture entry points and read access of a game session
type Engine interface {
	// Lifecycle
	Start() *GameState
	End(reason EndReason)

	// Gestures
	Reveal() bool
	AttemptMatch(answer string) MatchOutcome
	BeginDrag() bool
	LockInput()
	UnlockInput()

	// Countdown
	Tick()

	// State
	GetState() *GameState
	GetPhase() Phase
	GetScore() int
	IsGameOver() bool
	GetCatalog() *Catalog
}

// task names a deferred action owned by the session
type task string

const (
	taskCountdown  task = "countdown"
	taskNudge      task = "nudge"
	taskTransition task = "transition"
	taskFeedback   task = "feedback"
	taskUnlock     task = "unlock"
)

type scheduledTask struct {
	timer clock.Timer
	gen   uint64
}

// GameSession implements Engine. All entry points and timer callbacks are
// serialized by mu, so each one runs to completion before the next.
type GameSession struct {
	mu       sync.Mutex
	catalog  *Catalog
	clock    clock.Clock
	rng      *rand.Rand
	renderer Renderer

	phase         Phase
	score         int
	remaining     []Riddle
	current       *Riddle
	revealed      bool
	timeRemaining int
	inputLocked   bool
	consumed      map[string]bool
	icons         []IconCard
	status        string
	feedback      Feedback
	nudgeVisible  bool
	endReason     EndReason
	summary       string
	round         int

	tasks map[task]*scheduledTask
	gen   uint64
}

// Option configures a GameSession
type Option func(*GameSession)

// WithClock sets the clock used for the countdown and delays
func WithClock(c clock.Clock) Option {
	return func(s *GameSession) {
		s.clock = c
	}
}

// WithRand sets the random source used for shuffling
func WithRand(rng *rand.Rand) Option {
	return func(s *GameSession) {
		s.rng = rng
	}
}

// WithRenderer sets the renderer notified after every state change
func WithRenderer(r Renderer) Option {
	return func(s *GameSession) {
		s.renderer = r
	}
}

// NewGameSession creates an idle session over a validated catalog
func NewGameSession(catalog *Catalog, opts ...Option) (*GameSession, error) {
	if err := ValidateCatalog(catalog); err != nil {
		return nil, err
	}

	s := &GameSession{
		catalog:       catalog.clone(),
		phase:         PhaseIdle,
		timeRemaining: CountdownSeconds,
		consumed:      make(map[string]bool),
		status:        MsgNotStarted,
		tasks:         make(map[task]*scheduledTask),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.rng == nil {
		s.rng = NewRand()
	}

	return s, nil
}

// Start resets the session, shuffles the catalog and presents the first riddle.
// Calling Start on a running or finished session restarts it.
func (s *GameSession) Start() *GameState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAllLocked()

	s.score = 0
	s.round = 0
	s.inputLocked = false
	s.endReason = ""
	s.summary = ""
	s.consumed = make(map[string]bool)

	s.remaining = append([]Riddle(nil), s.catalog.Riddles...)
	Shuffle(s.rng, s.remaining)
	s.icons = buildIconPile(s.rng, s.catalog.Riddles)

	s.loadNextLocked()
	s.renderLocked()

	return s.snapshotLocked()
}

// Reveal flips the riddle card and starts the countdown.
// It is a no-op unless a riddle is presented and input is unlocked.
func (s *GameSession) Reveal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRiddlePresented || s.inputLocked {
		return false
	}

	s.cancelLocked(taskNudge)
	s.cancelLocked(taskFeedback)
	s.nudgeVisible = false

	s.revealed = true
	s.phase = PhaseRiddleRevealed
	s.status = MsgDragToMatch
	s.feedback = FeedbackNone

	s.startCountdownLocked()
	s.renderLocked()
	return true
}

// Tick decrements the countdown by one second. The countdown task calls it
// once per elapsed second; it does nothing unless a riddle is revealed.
func (s *GameSession) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickLocked()
}

// AttemptMatch checks a dropped icon card against the revealed riddle
func (s *GameSession) AttemptMatch(answer string) MatchOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRiddleRevealed || s.current == nil {
		return MatchRejected
	}

	if answer != s.current.Answer {
		s.status = MsgIncorrect
		s.feedback = FeedbackNegative
		s.scheduleLocked(taskFeedback, FeedbackDuration, s.clearFeedbackLocked)
		s.renderLocked()
		return MatchIncorrect
	}

	s.cancelLocked(taskCountdown)
	s.cancelLocked(taskFeedback)

	s.score++
	s.consumed[s.current.Icon] = true
	s.revealed = false
	s.phase = PhaseMatched
	s.status = MsgMatch
	s.feedback = FeedbackPositive

	s.scheduleLocked(taskTransition, MatchPause, func() {
		s.loadNextLocked()
		s.renderLocked()
	})
	s.renderLocked()
	return MatchCorrect
}

// BeginDrag is called when the player picks up an icon card. Dragging is
// refused while the riddle is hidden; an accepted drag locks input.
func (s *GameSession) BeginDrag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRiddleRevealed {
		if s.phase == PhaseRiddlePresented {
			s.status = MsgRevealFirst
			s.feedback = FeedbackNegative
			s.scheduleLocked(taskFeedback, RefusalDuration, s.clearFeedbackLocked)
			s.renderLocked()
		}
		return false
	}

	s.lockInputLocked()
	s.renderLocked()
	return true
}

// LockInput blocks reveal clicks while a drag gesture is in progress
func (s *GameSession) LockInput() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lockInputLocked()
	s.renderLocked()
}

// UnlockInput re-enables reveal clicks after a short delay so the click that
// ends a drag does not flip the next card.
func (s *GameSession) UnlockInput() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduleLocked(taskUnlock, UnlockDelay, func() {
		s.inputLocked = false
		s.renderLocked()
	})
}

// End stops the session. Ending an already finished session does nothing.
func (s *GameSession) End(reason EndReason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.IsTerminal() {
		return
	}
	s.endLocked(reason)
	s.renderLocked()
}

// GetState returns a snapshot of the session
func (s *GameSession) GetState() *GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// GetPhase returns the current phase
func (s *GameSession) GetPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// GetScore returns the number of correct matches
func (s *GameSession) GetScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// IsGameOver returns whether the session has timed out or completed
func (s *GameSession) IsGameOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase.IsTerminal()
}

// GetCatalog returns the catalog the session plays
func (s *GameSession) GetCatalog() *Catalog {
	return s.catalog
}

func (s *GameSession) loadNextLocked() {
	s.cancelLocked(taskCountdown)
	s.cancelLocked(taskNudge)
	s.cancelLocked(taskFeedback)
	s.nudgeVisible = false

	if len(s.remaining) == 0 {
		s.endLocked(EndComplete)
		return
	}

	next := s.remaining[len(s.remaining)-1]
	s.remaining = s.remaining[:len(s.remaining)-1]

	s.current = &next
	s.round++
	s.revealed = false
	s.timeRemaining = CountdownSeconds
	s.phase = PhaseRiddlePresented
	s.status = MsgTapToReveal
	s.feedback = FeedbackNone

	s.scheduleLocked(taskNudge, NudgeDelay, s.showNudgeLocked)
}

func (s *GameSession) startCountdownLocked() {
	s.cancelLocked(taskCountdown)
	s.timeRemaining = CountdownSeconds
	s.scheduleLocked(taskCountdown, TickInterval, s.tickLocked)
}

func (s *GameSession) tickLocked() {
	if s.phase != PhaseRiddleRevealed {
		return
	}

	s.timeRemaining--
	if s.timeRemaining <= 0 {
		s.timeRemaining = 0
		s.cancelLocked(taskCountdown)
		s.endLocked(EndTimedOut)
		s.renderLocked()
		return
	}

	s.scheduleLocked(taskCountdown, TickInterval, s.tickLocked)
	s.renderLocked()
}

// showNudgeLocked is advisory only: it never changes the phase
func (s *GameSession) showNudgeLocked() {
	if s.phase != PhaseRiddlePresented || s.revealed {
		return
	}
	s.nudgeVisible = true
	s.renderLocked()
}

func (s *GameSession) clearFeedbackLocked() {
	switch s.phase {
	case PhaseRiddlePresented:
		s.status = MsgTapToReveal
	case PhaseRiddleRevealed:
		s.status = MsgDragToMatch
	default:
		return
	}
	s.feedback = FeedbackNone
	s.renderLocked()
}

func (s *GameSession) lockInputLocked() {
	s.cancelLocked(taskUnlock)
	s.inputLocked = true
}

func (s *GameSession) endLocked(reason EndReason) {
	s.cancelAllLocked()
	s.nudgeVisible = false
	s.current = nil
	s.endReason = reason

	switch reason {
	case EndTimedOut:
		s.phase = PhaseTimedOut
		s.summary = fmt.Sprintf(SummaryTimedOut, s.score)
		s.status = MsgTimeUp
		s.feedback = FeedbackNegative
	default:
		s.phase = PhaseComplete
		s.summary = fmt.Sprintf(SummaryComplete, s.score, len(s.catalog.Riddles), s.catalog.subject())
		s.status = s.summary
		s.feedback = FeedbackPositive
	}
}

// scheduleLocked replaces any pending instance of name with f after d.
// A callback whose generation is no longer current is discarded, so a timer
// that fires concurrently with its cancellation has no effect.
func (s *GameSession) scheduleLocked(name task, d time.Duration, f func()) {
	s.cancelLocked(name)

	s.gen++
	gen := s.gen
	entry := &scheduledTask{gen: gen}
	s.tasks[name] = entry

	entry.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if cur, ok := s.tasks[name]; !ok || cur.gen != gen {
			return
		}
		delete(s.tasks, name)
		f()
	})
}

func (s *GameSession) cancelLocked(name task) {
	entry, ok := s.tasks[name]
	if !ok {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(s.tasks, name)
}

func (s *GameSession) cancelAllLocked() {
	for name := range s.tasks {
		s.cancelLocked(name)
	}
}

func (s *GameSession) renderLocked() {
	if s.renderer == nil {
		return
	}
	s.renderer.Render(s.snapshotLocked())
}

func (s *GameSession) snapshotLocked() *GameState {
	icons := lo.Map(s.icons, func(card IconCard, _ int) IconCard {
		card.Consumed = s.consumed[card.Icon]
		return card
	})
	consumed := lo.FilterMap(icons, func(card IconCard, _ int) (string, bool) {
		return card.Icon, card.Consumed
	})

	state := &GameState{
		Phase:            s.phase,
		Score:            s.score,
		TotalRiddles:     len(s.catalog.Riddles),
		RemainingRiddles: len(s.remaining),
		Revealed:         s.revealed,
		TimeRemaining:    s.timeRemaining,
		InputLocked:      s.inputLocked,
		Status:           s.status,
		Feedback:         s.feedback,
		NudgeVisible:     s.nudgeVisible,
		Icons:            icons,
		ConsumedIcons:    consumed,
		GameOver:         s.phase.IsTerminal(),
		EndReason:        s.endReason,
		Summary:          s.summary,
		CatalogName:      s.catalog.Name,
		Round:            s.round,
	}

	// The prompt stays face down until revealed
	if s.revealed && s.current != nil {
		state.Prompt = s.current.Prompt
	}

	return state
}
