package game

import "math/rand"

type Phase string

const (
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// WinningScore ends the game when any seat reaches it.
const WinningScore = 21

const (
	handValueCards  = 3
	handEffectCards = 2
	maxLogEntries   = 50
)

type PlayerState struct {
	Seat                    string
	Username                string
	Hand                    []Card
	Score                   int
	PlayedValueCardThisTurn bool
	Eliminated              bool
}

type LogEntry struct {
	Kind    string `json:"kind"` // "system" | "dialogue"
	Speaker string `json:"speaker,omitempty"`
	Message string `json:"message"`
}

type FieldEffect struct {
	Name   string `json:"name"`
	Target string `json:"target"` // seat
}

// State is the canonical game state. Exactly one goroutine (the session
// actor) owns it once a match starts.
type State struct {
	Seats         []string // canonical seat order, fixed at start
	Players       map[string]*PlayerState
	Decks         map[CardType][]Card
	Discard       map[CardType][]Card
	CurrentPlayer string
	Phase         Phase
	Passes        int // consecutive end-turns without a card played
	Effects       []FieldEffect
	Log           []LogEntry
	Winner        string // set when Phase == PhaseEnded

	rng        *rand.Rand
	nextCardID int
}

type SeatInfo struct {
	Seat     string
	Username string
}

// NewState deals opening hands in seat order. The rng is injected so
// tests can fix the shuffle.
func NewState(seats []SeatInfo, rng *rand.Rand) *State {
	s := &State{
		Players: make(map[string]*PlayerState, len(seats)),
		Decks:   make(map[CardType][]Card, 2),
		Discard: make(map[CardType][]Card, 2),
		Phase:   PhasePlaying,
		rng:     rng,
	}
	s.Decks[CardValue] = shuffle(rng, buildDeck(CardValue, &s.nextCardID))
	s.Decks[CardEffect] = shuffle(rng, buildDeck(CardEffect, &s.nextCardID))

	for _, si := range seats {
		s.Seats = append(s.Seats, si.Seat)
		p := &PlayerState{Seat: si.Seat, Username: si.Username}
		for i := 0; i < handValueCards; i++ {
			p.Hand = append(p.Hand, s.deal(CardValue))
		}
		for i := 0; i < handEffectCards; i++ {
			p.Hand = append(p.Hand, s.deal(CardEffect))
		}
		s.Players[si.Seat] = p
	}
	s.CurrentPlayer = s.Seats[0]
	return s
}

// ActiveSeats returns the non-eliminated seats in canonical order.
func (s *State) ActiveSeats() []string {
	var active []string
	for _, seat := range s.Seats {
		if !s.Players[seat].Eliminated {
			active = append(active, seat)
		}
	}
	return active
}

// NextActiveSeat scans forward from the given seat, skipping eliminated
// seats and consuming one pending skip effect per candidate. The scan is
// deterministic: same state, same answer.
func (s *State) NextActiveSeat(from string) string {
	idx := 0
	for i, seat := range s.Seats {
		if seat == from {
			idx = i
			break
		}
	}
	for step := 1; step <= len(s.Seats); step++ {
		cand := s.Seats[(idx+step)%len(s.Seats)]
		if s.Players[cand].Eliminated {
			continue
		}
		if s.consumeSkip(cand) {
			continue
		}
		return cand
	}
	return from
}

func (s *State) consumeSkip(seat string) bool {
	for i, fe := range s.Effects {
		if fe.Name == EffectSkip && fe.Target == seat {
			s.Effects = append(s.Effects[:i], s.Effects[i+1:]...)
			s.appendLog(LogEntry{Kind: "system", Message: s.Players[seat].Username + " skips a turn."})
			return true
		}
	}
	return false
}

func (s *State) advanceTurn() {
	next := s.NextActiveSeat(s.CurrentPlayer)
	s.CurrentPlayer = next
	s.Players[next].PlayedValueCardThisTurn = false
	s.replenish(next)
}

// replenish refills a hand whose cards of a type ran out, at the start
// of the seat's turn. Played cards are not replaced mid-turn, so hands
// deplete and a seat holding at most one value card may pass.
func (s *State) replenish(seat string) {
	p := s.Players[seat]
	counts := map[CardType]int{}
	for _, c := range p.Hand {
		counts[c.Type]++
	}
	if counts[CardValue] == 0 {
		for i := 0; i < handValueCards; i++ {
			p.Hand = append(p.Hand, s.deal(CardValue))
		}
	}
	if counts[CardEffect] == 0 {
		for i := 0; i < handEffectCards; i++ {
			p.Hand = append(p.Hand, s.deal(CardEffect))
		}
	}
}

func (s *State) appendLog(e LogEntry) {
	// Newest first, trailing window only.
	s.Log = append([]LogEntry{e}, s.Log...)
	if len(s.Log) > maxLogEntries {
		s.Log = s.Log[:maxLogEntries]
	}
}

// AppendChat records an in-game chat line in the shared log.
func (s *State) AppendChat(speaker, message string) {
	s.appendLog(LogEntry{Kind: "dialogue", Speaker: speaker, Message: message})
}

// Eliminate flags a seat out of the match and reports whether anything
// changed. The slot stays in Seats and Players so the log and seat
// order stay coherent. If the seat held the turn, the turn advances as
// an implicit end-turn.
func (s *State) Eliminate(seat string) bool {
	p, ok := s.Players[seat]
	if !ok || p.Eliminated {
		return false
	}
	p.Eliminated = true
	s.appendLog(LogEntry{Kind: "system", Message: p.Username + " left the match."})
	if s.CurrentPlayer == seat && s.Phase == PhasePlaying {
		s.advanceTurn()
	}
	return true
}

// CheckTerminal transitions to PhaseEnded when a terminal condition
// holds and reports whether it did so on this call. It never fires twice.
func (s *State) CheckTerminal() bool {
	if s.Phase != PhasePlaying {
		return false
	}
	active := s.ActiveSeats()
	switch {
	case len(active) == 1:
		s.endWith(active[0])
		return true
	case len(active) == 0:
		s.Phase = PhaseEnded
		return true
	}
	for _, seat := range active {
		if s.Players[seat].Score >= WinningScore {
			s.endWith(seat)
			return true
		}
	}
	if s.Passes >= len(active) {
		// Everyone passed in a row: highest score takes it.
		best := active[0]
		for _, seat := range active[1:] {
			if s.Players[seat].Score > s.Players[best].Score {
				best = seat
			}
		}
		s.endWith(best)
		return true
	}
	return false
}

func (s *State) endWith(winner string) {
	s.Phase = PhaseEnded
	s.Winner = winner
	s.appendLog(LogEntry{Kind: "system", Message: s.Players[winner].Username + " wins the game!"})
}
