package ai

import (
	"errors"
	"math/rand"
	"time"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/scoring"
)

var (
	ErrPlayerExists   = errors.New("ai player already exists")
	ErrPlayerNotFound = errors.New("ai player not found")
)

const (
	// MaxTurnSteps bounds a turn against a brain that never scores.
	MaxTurnSteps = 12

	// DefaultDecideTimeout bounds one brain call.
	DefaultDecideTimeout = 500 * time.Millisecond

	defaultMinThink = 400 * time.Millisecond
	defaultMaxThink = 1800 * time.Millisecond
)

// PlayerState tracks one AI-occupied seat.
type PlayerState struct {
	PlayerID         string        `json:"playerId"`
	Profile          Profile       `json:"profile"`
	TurnStep         int           `json:"turnStep"`
	IsThinking       bool          `json:"isThinking"`
	AccumulatedThink time.Duration `json:"accumulatedThinkTime"`

	brain Brain

	// pending holds the result channel of a decide call that outlived
	// its timeout. The brain (and its rng) belong to that call until it
	// finishes; new consultations fall back in the meantime.
	pending chan brainOutcome
}

// Controller owns the AI players of one room. It is constructed per room
// and driven entirely from the room's message loop.
type Controller struct {
	players       map[string]*PlayerState
	rng           *rand.Rand
	decideTimeout time.Duration
}

func NewController(rng *rand.Rand) *Controller {
	return &Controller{
		players:       map[string]*PlayerState{},
		rng:           rng,
		decideTimeout: DefaultDecideTimeout,
	}
}

// AddPlayer creates the player state and binds its brain.
func (c *Controller) AddPlayer(playerID string, profile Profile) error {
	if _, ok := c.players[playerID]; ok {
		return ErrPlayerExists
	}
	if profile.MinThink <= 0 {
		profile.MinThink = defaultMinThink
	}
	if profile.MaxThink < profile.MinThink {
		profile.MaxThink = defaultMaxThink
	}
	// Each brain gets its own rng: Decide runs off the room goroutine,
	// so sharing the controller's rng with it would race.
	c.players[playerID] = &PlayerState{
		PlayerID: playerID,
		Profile:  profile,
		brain:    NewBrain(profile, rand.New(rand.NewSource(c.rng.Int63()))),
	}
	return nil
}

// RemovePlayer destroys the player state and its brain.
func (c *Controller) RemovePlayer(playerID string) error {
	if _, ok := c.players[playerID]; !ok {
		return ErrPlayerNotFound
	}
	delete(c.players, playerID)
	return nil
}

// IsAI reports whether playerID is controller-owned.
func (c *Controller) IsAI(playerID string) bool {
	_, ok := c.players[playerID]
	return ok
}

// Player returns a copy of the player state.
func (c *Controller) Player(playerID string) (PlayerState, bool) {
	p, ok := c.players[playerID]
	if !ok {
		return PlayerState{}, false
	}
	return *p, true
}

// BeginTurn resets the step counter when the seat gains the turn.
func (c *Controller) BeginTurn(playerID string) {
	if p, ok := c.players[playerID]; ok {
		p.TurnStep = 0
	}
}

// ThinkDelay picks the pre-decision pause, clamped to the profile window.
func (c *Controller) ThinkDelay(playerID string) time.Duration {
	p, ok := c.players[playerID]
	if !ok {
		return 0
	}
	window := p.Profile.MaxThink - p.Profile.MinThink
	d := p.Profile.MinThink
	if window > 0 {
		d += time.Duration(c.rng.Int63n(int64(window)))
	}
	return d
}

// NoteThinking flips the thinking flag and accumulates spent think time.
func (c *Controller) NoteThinking(playerID string, thinking bool, spent time.Duration) {
	if p, ok := c.players[playerID]; ok {
		p.IsThinking = thinking
		p.AccumulatedThink += spent
	}
}

// NextCommands produces the next command batch for the AI's turn, always
// through the public engine command types. The initial roll is forced
// before any brain consultation; the step cap and the decide timeout both
// resolve to the safe default of scoring the best available category.
func (c *Controller) NextCommands(playerID string, state engine.State) ([]engine.Command, error) {
	p, ok := c.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	seat, ok := state.CurrentSeat()
	if !ok || seat.UserID != playerID {
		return nil, engine.ErrWrongTurn
	}

	p.TurnStep++

	if state.Turn.Phase == engine.PhasePreRoll {
		return []engine.Command{{Type: engine.CmdRoll, ActorID: playerID}}, nil
	}

	if p.TurnStep > MaxTurnSteps {
		return c.fallback(playerID, state), nil
	}

	decision, err := c.decide(p, decisionContext(state, seat))
	if err != nil {
		return c.fallback(playerID, state), nil
	}

	switch decision.Action {
	case ActionScore:
		return []engine.Command{{Type: engine.CmdScore, ActorID: playerID, Category: decision.Category}}, nil
	case ActionRoll:
		cmds := []engine.Command{}
		if decision.Keep != state.Turn.Keep {
			cmds = append(cmds, engine.Command{Type: engine.CmdKeep, ActorID: playerID, Keep: decision.Keep})
		}
		return append(cmds, engine.Command{Type: engine.CmdRoll, ActorID: playerID}), nil
	case ActionKeep:
		return []engine.Command{{Type: engine.CmdKeep, ActorID: playerID, Keep: decision.Keep}}, nil
	default:
		return c.fallback(playerID, state), nil
	}
}

type brainOutcome struct {
	d   Decision
	err error
}

var errBrainTimeout = errors.New("brain decision timed out")

// decide runs the brain with a bounded timeout. At most one goroutine
// touches the brain at a time: a call that misses the deadline is parked
// on p.pending and must drain before the brain is consulted again.
func (c *Controller) decide(p *PlayerState, ctx Context) (Decision, error) {
	if p.pending != nil {
		select {
		case <-p.pending:
			p.pending = nil
		default:
			return Decision{}, errBrainTimeout
		}
	}

	ch := make(chan brainOutcome, 1)
	go func() {
		d, err := p.brain.Decide(ctx)
		ch <- brainOutcome{d, err}
	}()

	select {
	case o := <-ch:
		return o.d, o.err
	case <-time.After(c.decideTimeout):
		p.pending = ch
		return Decision{}, errBrainTimeout
	}
}

func (c *Controller) fallback(playerID string, state engine.State) []engine.Command {
	seat := state.Seats[state.Turn.SeatIndex]
	category, _ := engine.BestAvailableCategory(state.Turn.Dice, seat.Scorecard)
	return []engine.Command{{Type: engine.CmdScore, ActorID: playerID, Category: category}}
}

func decisionContext(state engine.State, seat engine.Seat) Context {
	upper := 0
	for cat, s := range seat.Scorecard {
		if scoring.IsUpper(cat) {
			upper += s
		}
	}
	return Context{
		Dice:           state.Turn.Dice,
		Keep:           state.Turn.Keep,
		RollsRemaining: state.Turn.RollsRemaining,
		Scorecard:      seat.Scorecard,
		UpperSubtotal:  upper,
	}
}
