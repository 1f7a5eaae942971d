package game

import "errors"

var ErrGameOver = errors.New("game already over")
var ErrUnknownSeat = errors.New("unknown seat")
var ErrEliminated = errors.New("seat eliminated")
var ErrWrongTurn = errors.New("not your turn")
var ErrCardNotInHand = errors.New("card not in hand")
var ErrMustPlayValueCard = errors.New("must play a value card this turn")

// Intent is the closed set of state-mutating client requests.
type Intent interface{ isIntent() }

type PlayCard struct {
	CardID     int
	TargetSeat string
	Options    Options
}

func (PlayCard) isIntent() {}

type EndTurn struct{}

func (EndTurn) isIntent() {}

type EventType string

const (
	EvtCardPlayed   EventType = "CardPlayed"
	EvtTurnAdvanced EventType = "TurnAdvanced"
	EvtGameOver     EventType = "GameOver"
)

type Event struct {
	Type   EventType
	Seat   string
	Card   Card
	Winner string
}

// Apply validates an intent against the canonical state and, if legal,
// mutates the state and reports what happened. On error the state is
// untouched: every check runs before the first mutation, and the rules
// engine honors the same contract.
func Apply(s *State, seat string, in Intent, rules RulesEngine) ([]Event, error) {
	if s.Phase != PhasePlaying {
		return nil, ErrGameOver
	}
	player, ok := s.Players[seat]
	if !ok {
		return nil, ErrUnknownSeat
	}
	if player.Eliminated {
		return nil, ErrEliminated
	}
	if s.CurrentPlayer != seat {
		return nil, ErrWrongTurn
	}

	switch intent := in.(type) {
	case PlayCard:
		idx := -1
		for i, c := range player.Hand {
			if c.ID == intent.CardID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrCardNotInHand
		}
		card := player.Hand[idx]

		if err := rules.ApplyCard(s, seat, card, intent.TargetSeat, intent.Options); err != nil {
			return nil, err
		}

		player.Hand = append(player.Hand[:idx], player.Hand[idx+1:]...)
		s.Discard[card.Type] = append(s.Discard[card.Type], card)
		if card.Type == CardValue {
			player.PlayedValueCardThisTurn = true
		}
		s.Passes = 0

		events := []Event{{Type: EvtCardPlayed, Seat: seat, Card: card}}
		if s.CheckTerminal() {
			events = append(events, Event{Type: EvtGameOver, Winner: s.Winner})
			return events, nil
		}
		s.advanceTurn()
		events = append(events, Event{Type: EvtTurnAdvanced, Seat: s.CurrentPlayer})
		return events, nil

	case EndTurn:
		if mustPlayValueCard(player) {
			return nil, ErrMustPlayValueCard
		}
		s.Passes++
		if s.CheckTerminal() {
			return []Event{{Type: EvtGameOver, Winner: s.Winner}}, nil
		}
		s.advanceTurn()
		return []Event{{Type: EvtTurnAdvanced, Seat: s.CurrentPlayer}}, nil

	default:
		return nil, errors.New("unsupported intent")
	}
}

// IsValidation reports whether an Apply error is an ordinary rejection
// of the intent, as opposed to a failure to construct the next state.
func IsValidation(err error) bool {
	for _, sentinel := range []error{
		ErrGameOver, ErrUnknownSeat, ErrEliminated,
		ErrWrongTurn, ErrCardNotInHand, ErrMustPlayValueCard,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	var rv *RuleViolation
	return errors.As(err, &rv)
}

// A seat holding more than one value card may not pass without playing
// one first.
func mustPlayValueCard(p *PlayerState) bool {
	if p.PlayedValueCardThisTurn {
		return false
	}
	n := 0
	for _, c := range p.Hand {
		if c.Type == CardValue {
			n++
		}
	}
	return n > 1
}
