package game

import (
	"math/rand"
	"testing"
)

func TestModeMinPlayers(t *testing.T) {
	cases := []struct {
		mode Mode
		want int
	}{
		{ModeSolo2P, 2},
		{ModeSolo3P, 3},
		{ModeSolo4P, 4},
		{ModeDuo, 4},
		{Mode("ranked"), 0},
	}
	for _, tc := range cases {
		if got := tc.mode.MinPlayers(); got != tc.want {
			t.Errorf("%s: want %d, got %d", tc.mode, tc.want, got)
		}
	}
}

func TestNewStateDealsHands(t *testing.T) {
	s := newTestState(t, "player-1", "player-2", "player-3")
	if s.CurrentPlayer != "player-1" {
		t.Fatalf("want first seat current, got %s", s.CurrentPlayer)
	}
	for seat, p := range s.Players {
		if len(p.Hand) != handValueCards+handEffectCards {
			t.Fatalf("%s: want %d cards, got %d", seat, handValueCards+handEffectCards, len(p.Hand))
		}
	}
}

func TestNextActiveSeatSkipsEliminated(t *testing.T) {
	s := newTestState(t, "player-1", "player-2", "player-3", "player-4")
	s.Players["player-2"].Eliminated = true

	if got := s.NextActiveSeat("player-1"); got != "player-3" {
		t.Fatalf("want player-3, got %s", got)
	}
	if got := s.NextActiveSeat("player-4"); got != "player-1" {
		t.Fatalf("wrap-around: want player-1, got %s", got)
	}
}

func TestEliminateCurrentSeatAdvancesTurn(t *testing.T) {
	s := newTestState(t, "player-1", "player-2", "player-3")
	if !s.Eliminate("player-1") {
		t.Fatalf("eliminate reported no change")
	}

	if s.CurrentPlayer != "player-2" {
		t.Fatalf("want player-2, got %s", s.CurrentPlayer)
	}
	if s.Players[s.CurrentPlayer].Eliminated {
		t.Fatalf("current player is eliminated")
	}
	if s.Eliminate("player-1") {
		t.Fatalf("repeat eliminate reported a change")
	}
}

func TestEliminateNonCurrentSeatKeepsTurn(t *testing.T) {
	s := newTestState(t, "player-1", "player-2", "player-3")
	s.Eliminate("player-3")

	if s.CurrentPlayer != "player-1" {
		t.Fatalf("want player-1, got %s", s.CurrentPlayer)
	}
}

func TestCheckTerminalLastSeatStanding(t *testing.T) {
	s := newTestState(t, "player-1", "player-2", "player-3")
	s.Eliminate("player-2")
	s.Eliminate("player-3")

	if !s.CheckTerminal() {
		t.Fatalf("want terminal with one active seat")
	}
	if s.Winner != "player-1" {
		t.Fatalf("want winner player-1, got %s", s.Winner)
	}
	// Never fires twice.
	if s.CheckTerminal() {
		t.Fatalf("terminal fired a second time")
	}
}

func TestCheckTerminalAllPassed(t *testing.T) {
	s := newTestState(t, "player-1", "player-2")
	s.Players["player-1"].Score = 7
	s.Players["player-2"].Score = 12
	s.Passes = 2

	if !s.CheckTerminal() {
		t.Fatalf("want terminal after everyone passed")
	}
	if s.Winner != "player-2" {
		t.Fatalf("want highest score to win, got %s", s.Winner)
	}
}

func TestDealReshufflesDiscard(t *testing.T) {
	s := newTestState(t, "player-1", "player-2")
	s.Discard[CardValue] = s.Decks[CardValue]
	s.Decks[CardValue] = nil

	c := s.deal(CardValue)
	if c.Type != CardValue {
		t.Fatalf("want value card, got %+v", c)
	}
	if len(s.Discard[CardValue]) != 0 {
		t.Fatalf("discard not folded back into the deck")
	}
}

func TestDealRebuildsWhenBothEmpty(t *testing.T) {
	s := newTestState(t, "player-1", "player-2")
	s.Decks[CardEffect] = nil
	s.Discard[CardEffect] = nil

	c := s.deal(CardEffect)
	if c.Type != CardEffect {
		t.Fatalf("want effect card, got %+v", c)
	}
	if len(s.Decks[CardEffect]) == 0 {
		t.Fatalf("deck not rebuilt")
	}
}

func TestLogTrailingWindow(t *testing.T) {
	s := newTestState(t, "player-1", "player-2")
	for i := 0; i < maxLogEntries+10; i++ {
		s.AppendChat("user-player-1", "hello")
	}
	if len(s.Log) != maxLogEntries {
		t.Fatalf("want %d entries, got %d", maxLogEntries, len(s.Log))
	}
}

func TestShuffleKeepsDeckSize(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var id int
	deck := buildDeck(CardValue, &id)
	shuffled := shuffle(rng, deck)
	if len(shuffled) != 20 {
		t.Fatalf("want 20 value cards, got %d", len(shuffled))
	}
}
