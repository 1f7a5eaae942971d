// Package protocol defines the wire vocabulary between clients and the
// server. Both directions are closed sets: a flat envelope with a type
// discriminator, switched exhaustively at the endpoints.
package protocol

import "reversus/internal/game"

// Client -> server message types.
const (
	CListRooms   = "listRooms"
	CCreateRoom  = "createRoom"
	CJoinRoom    = "joinRoom"
	CLeaveRoom   = "leaveRoom"
	CChangeMode  = "changeMode"
	CStartGame   = "startGame"
	CPlayCard    = "playCard"
	CEndTurn     = "endTurn"
	CLobbyChat   = "lobbyChatMessage"
	CChatMessage = "chatMessage"
)

type ClientMessage struct {
	Type     string       `json:"type"`
	Username string       `json:"username,omitempty"`
	RoomID   string       `json:"roomId,omitempty"`
	Mode     game.Mode    `json:"mode,omitempty"`
	CardID   int          `json:"cardId,omitempty"`
	TargetID string       `json:"targetId,omitempty"`
	Options  game.Options `json:"options,omitempty"`
	Text     string       `json:"text,omitempty"`
}

// Server -> client message types.
const (
	SConnected          = "connected"
	SRoomList           = "roomList"
	SRoomCreated        = "roomCreated"
	SLobbyUpdate        = "lobbyUpdate"
	SGameStarted        = "gameStarted"
	SGameStateUpdate    = "gameStateUpdate"
	SLobbyChat          = "lobbyChatMessage"
	SChatMessage        = "chatMessage"
	SPlayerDisconnected = "playerDisconnected"
	SGameOver           = "gameOver"
	SGameAborted        = "gameAborted"
	SKicked             = "kicked"
	SError              = "error"
)

type ServerMessage struct {
	Type     string             `json:"type"`
	ClientID string             `json:"clientId,omitempty"`
	Rooms    []RoomListing      `json:"rooms,omitempty"`
	RoomID   string             `json:"roomId,omitempty"`
	Room     *RoomSnapshot      `json:"room,omitempty"`
	State    *GameStateSnapshot `json:"state,omitempty"`
	Speaker  string             `json:"speaker,omitempty"`
	PlayerID string             `json:"playerId,omitempty"`
	Username string             `json:"username,omitempty"`
	Message  string             `json:"message,omitempty"`
}
