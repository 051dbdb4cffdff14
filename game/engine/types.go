package engine

import "time"

// Phase represents where a game session is in its lifecycle
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseRiddlePresented Phase = "riddle_presented"
	PhaseRiddleRevealed  Phase = "riddle_revealed"
	PhaseMatched         Phase = "matched"
	PhaseTimedOut        Phase = "timed_out"
	PhaseComplete        Phase = "complete"
)

// IsTerminal reports whether the phase ends the session
func (p Phase) IsTerminal() bool {
	return p == PhaseTimedOut || p == PhaseComplete
}

// EndReason explains why a session ended
type EndReason string

const (
	EndTimedOut EndReason = "timed_out"
	EndComplete EndReason = "complete"
)

// Feedback is the transient cue shown alongside the status message
type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)

// MatchOutcome is the result of dropping an icon card on the riddle
type MatchOutcome string

const (
	MatchCorrect   MatchOutcome = "correct"
	MatchIncorrect MatchOutcome = "incorrect"
	MatchRejected  MatchOutcome = "rejected"
)

const (
	// Game timing
	CountdownSeconds = 20
	TickInterval     = time.Second
	NudgeDelay       = 10 * time.Second
	MatchPause       = 1500 * time.Millisecond
	FeedbackDuration = 2 * time.Second
	RefusalDuration  = 1500 * time.Millisecond
	UnlockDelay      = 50 * time.Millisecond

	// Status messages
	MsgTapToReveal   = "Tap the card to reveal the riddle!"
	MsgDragToMatch   = "Now drag the correct icon card here! Time is ticking..."
	MsgMatch         = "MATCH! Correct profession found."
	MsgIncorrect     = "Incorrect. Try a different icon card!"
	MsgRevealFirst   = "Tap the riddle card first!"
	MsgTimeUp        = "TIME'S UP! Game Over."
	MsgNotStarted    = "Press start to play."
	SummaryTimedOut  = "Time ran out! Your final score is %d."
	SummaryComplete  = "You matched %d out of %d %s!"
	DefaultSubject   = "community members"
	MaxCatalogLength = 100
)

// Riddle is one immutable catalog entry
type Riddle struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
	Icon   string `json:"icon"`
}

// Catalog is a named deck of riddles loaded from JSON
type Catalog struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Subject     string   `json:"subject,omitempty"`
	Riddles     []Riddle `json:"riddles"`
}

// IconCard is one card of the icon pile the player drags from
type IconCard struct {
	Answer   string `json:"answer"`
	Label    string `json:"label"`
	Icon     string `json:"icon"`
	Initial  string `json:"initial"`
	Consumed bool   `json:"consumed"`
}

// GameState is the snapshot handed to renderers after every state change
type GameState struct {
	Phase            Phase      `json:"phase"`
	Score            int        `json:"score"`
	TotalRiddles     int        `json:"total_riddles"`
	RemainingRiddles int        `json:"remaining_riddles"`
	Prompt           string     `json:"prompt,omitempty"`
	Revealed         bool       `json:"revealed"`
	TimeRemaining    int        `json:"time_remaining"`
	InputLocked      bool       `json:"input_locked"`
	Status           string     `json:"status"`
	Feedback         Feedback   `json:"feedback,omitempty"`
	NudgeVisible     bool       `json:"nudge_visible"`
	Icons            []IconCard `json:"icons"`
	ConsumedIcons    []string   `json:"consumed_icons"`
	GameOver         bool       `json:"game_over"`
	EndReason        EndReason  `json:"end_reason,omitempty"`
	Summary          string     `json:"summary,omitempty"`
	CatalogName      string     `json:"catalog_name"`
	Round            int        `json:"round"`
}

// Renderer receives a snapshot after every state change.
// Render is called with the session lock held and must not call back into the session.
type Renderer interface {
	Render(state *GameState)
}

// RenderFunc adapts a function to the Renderer interface
type RenderFunc func(state *GameState)

// Render calls f(state)
func (f RenderFunc) Render(state *GameState) {
	f(state)
}
