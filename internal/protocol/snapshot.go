package protocol

import (
	"reversus/internal/board"
	"reversus/internal/game"
)

type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomStarted RoomStatus = "started"
	RoomClosed  RoomStatus = "closed"
)

// RoomListing is the lobby-browser view of a room.
type RoomListing struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	PlayerCount int        `json:"playerCount"`
	Capacity    int        `json:"capacity"`
	Mode        game.Mode  `json:"mode"`
	Status      RoomStatus `json:"status"`
}

type RoomMember struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
	Seat     string `json:"seat"`
}

// RoomSnapshot is the full pre-game room state pushed on every lobby
// change.
type RoomSnapshot struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Mode    game.Mode    `json:"mode"`
	HostID  string       `json:"hostId"`
	Status  RoomStatus   `json:"status"`
	Members []RoomMember `json:"members"`
}

// PlayerSnapshot is one seat as seen by a particular recipient. Hand is
// populated only for the recipient's own seat; everyone else gets
// HandCount alone.
type PlayerSnapshot struct {
	Seat                    string      `json:"seat"`
	Username                string      `json:"username"`
	Hand                    []game.Card `json:"hand,omitempty"`
	HandCount               int         `json:"handCount"`
	Score                   int         `json:"score"`
	PlayedValueCardThisTurn bool        `json:"playedValueCardThisTurn"`
	Eliminated              bool        `json:"eliminated"`
}

// GameStateSnapshot is the recipient-scoped full-state broadcast. MySeat
// tells the recipient which seat it owns; Seq orders snapshots.
type GameStateSnapshot struct {
	SessionID     string                    `json:"sessionId"`
	Seq           uint64                    `json:"seq"`
	Players       map[string]PlayerSnapshot `json:"players"`
	SeatOrder     []string                  `json:"seatOrder"`
	CurrentPlayer string                    `json:"currentPlayer"`
	Phase         game.Phase                `json:"gamePhase"`
	MySeat        string                    `json:"mySeat"`
	DeckSizes     map[game.CardType]int     `json:"deckSizes"`
	DiscardSizes  map[game.CardType]int     `json:"discardSizes"`
	Effects       []game.FieldEffect        `json:"fieldEffects"`
	Log           []game.LogEntry           `json:"log"`
	Board         *board.Layout             `json:"board,omitempty"`
	Winner        string                    `json:"winner,omitempty"`
}

// SnapshotFor renders canonical state for one recipient, redacting every
// hand but the recipient's own.
func SnapshotFor(sessionID string, seq uint64, s *game.State, layout *board.Layout, mySeat string) *GameStateSnapshot {
	snap := &GameStateSnapshot{
		SessionID:     sessionID,
		Seq:           seq,
		Players:       make(map[string]PlayerSnapshot, len(s.Players)),
		SeatOrder:     append([]string(nil), s.Seats...),
		CurrentPlayer: s.CurrentPlayer,
		Phase:         s.Phase,
		MySeat:        mySeat,
		DeckSizes:     map[game.CardType]int{game.CardValue: len(s.Decks[game.CardValue]), game.CardEffect: len(s.Decks[game.CardEffect])},
		DiscardSizes:  map[game.CardType]int{game.CardValue: len(s.Discard[game.CardValue]), game.CardEffect: len(s.Discard[game.CardEffect])},
		Effects:       append([]game.FieldEffect(nil), s.Effects...),
		Log:           append([]game.LogEntry(nil), s.Log...),
		Board:         layout,
		Winner:        s.Winner,
	}
	for seat, p := range s.Players {
		ps := PlayerSnapshot{
			Seat:                    p.Seat,
			Username:                p.Username,
			HandCount:               len(p.Hand),
			Score:                   p.Score,
			PlayedValueCardThisTurn: p.PlayedValueCardThisTurn,
			Eliminated:              p.Eliminated,
		}
		if seat == mySeat {
			ps.Hand = append([]game.Card(nil), p.Hand...)
		}
		snap.Players[seat] = ps
	}
	return snap
}
