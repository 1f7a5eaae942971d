package game

import "math/rand"

type CardType string

const (
	CardValue  CardType = "value"
	CardEffect CardType = "effect"
)

type Card struct {
	ID    int      `json:"id"`
	Type  CardType `json:"type"`
	Name  string   `json:"name"`
	Value int      `json:"value,omitempty"` // value cards only
}

// Effect card names. The closed set the built-in rules understand.
const (
	EffectBoost = "boost"
	EffectDrain = "drain"
	EffectSwap  = "swap"
	EffectSkip  = "skip"
)

// Deck composition: value cards 1..10 twice over, each effect four times.
func buildDeck(t CardType, nextID *int) []Card {
	var deck []Card
	switch t {
	case CardValue:
		for copyN := 0; copyN < 2; copyN++ {
			for v := 1; v <= 10; v++ {
				*nextID++
				deck = append(deck, Card{ID: *nextID, Type: CardValue, Name: valueName(v), Value: v})
			}
		}
	case CardEffect:
		for copyN := 0; copyN < 4; copyN++ {
			for _, name := range []string{EffectBoost, EffectDrain, EffectSwap, EffectSkip} {
				*nextID++
				deck = append(deck, Card{ID: *nextID, Type: CardEffect, Name: name})
			}
		}
	}
	return deck
}

func valueName(v int) string {
	return [...]string{"", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}[v]
}

func shuffle(rng *rand.Rand, deck []Card) []Card {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// deal pops the top card of the given deck, reshuffling the discard pile
// back in when the deck runs dry. If both are empty a fresh deck is built
// so the game can always continue.
func (s *State) deal(t CardType) Card {
	if len(s.Decks[t]) == 0 {
		if len(s.Discard[t]) == 0 {
			s.Decks[t] = shuffle(s.rng, buildDeck(t, &s.nextCardID))
		} else {
			s.Decks[t] = shuffle(s.rng, s.Discard[t])
			s.Discard[t] = nil
		}
	}
	deck := s.Decks[t]
	c := deck[len(deck)-1]
	s.Decks[t] = deck[:len(deck)-1]
	return c
}
