package game

import "fmt"

// Options carries card-specific choices made by the player (e.g. which
// variant of an effect to apply).
type Options struct {
	Effect string `json:"effect,omitempty"`
}

// RuleViolation is returned by a rules engine when a card cannot be
// applied as requested. Canonical state is untouched when it is returned.
type RuleViolation struct {
	Reason string
}

func (v *RuleViolation) Error() string {
	return "rule violation: " + v.Reason
}

// RulesEngine resolves card-effect semantics. Implementations must be
// all-or-nothing: on error the state is exactly as it was passed in,
// and they must not coordinate across sessions.
type RulesEngine interface {
	ApplyCard(s *State, seat string, card Card, target string, opts Options) error
}

// BasicRules is the built-in engine: value cards score their face value
// toward the winning threshold, effect cards manipulate scores or queue
// field effects.
type BasicRules struct{}

func (BasicRules) ApplyCard(s *State, seat string, card Card, target string, opts Options) error {
	player := s.Players[seat]
	switch card.Type {
	case CardValue:
		player.Score += card.Value
		s.appendLog(LogEntry{Kind: "system",
			Message: fmt.Sprintf("%s plays %s (%d points).", player.Username, card.Name, player.Score)})
		return nil

	case CardEffect:
		tp, ok := s.Players[target]
		if !ok {
			return &RuleViolation{Reason: "unknown target seat"}
		}
		if tp.Eliminated {
			return &RuleViolation{Reason: "target already out of the match"}
		}
		switch card.Name {
		case EffectBoost:
			tp.Score += 2
		case EffectDrain:
			tp.Score -= 2
			if tp.Score < 0 {
				tp.Score = 0
			}
		case EffectSwap:
			player.Score, tp.Score = tp.Score, player.Score
		case EffectSkip:
			s.Effects = append(s.Effects, FieldEffect{Name: EffectSkip, Target: target})
		default:
			return &RuleViolation{Reason: "unknown effect card " + card.Name}
		}
		s.appendLog(LogEntry{Kind: "system",
			Message: fmt.Sprintf("%s plays %s on %s.", player.Username, card.Name, tp.Username)})
		return nil

	default:
		return &RuleViolation{Reason: "unknown card type"}
	}
}
