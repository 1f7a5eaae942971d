// Package ws is the websocket endpoint of the action relay. Each
// connection gets its own state threaded through the dispatch switch;
// there is no process-wide connection singleton.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"reversus/internal/game"
	"reversus/internal/protocol"
	"reversus/internal/room"
	"reversus/internal/session"
)

const (
	outboxSize   = 16
	writeTimeout = 3 * time.Second
	replyTimeout = 5 * time.Second
)

// pingInterval is a var so tests can shorten the keepalive cycle.
var pingInterval = 15 * time.Second

// connState is everything the relay knows about one connection.
type connState struct {
	clientID string
	username string
	outbox   chan protocol.ServerMessage
}

func Handler(dir *room.Directory, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		cs := &connState{
			clientID: uuid.NewString(),
			outbox:   make(chan protocol.ServerMessage, outboxSize),
		}
		clog := log.With(zap.String("client", cs.clientID))

		dir.Inbox() <- room.Register{ClientID: cs.clientID, Outbox: cs.outbox}
		defer func() { dir.Inbox() <- room.Unregister{ClientID: cs.clientID} }()

		// Writer goroutine. The outbox is the only path to the wire, so
		// server pushes and error replies stay ordered.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case msg := <-cs.outbox:
					payload, err := json.Marshal(msg)
					if err != nil {
						clog.Error("marshal push", zap.Error(err))
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				}
			}
		}()

		// Keepalive. Ping blocks until the pong comes back, so a dead
		// peer trips the write timeout; canceling the read context then
		// closes the connection and unblocks the read loop. Idle peers
		// that still pong stay connected.
		readCtx, readCancel := context.WithCancel(r.Context())
		defer readCancel()
		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-readCtx.Done():
					return
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(readCtx, writeTimeout)
					err := conn.Ping(ctx)
					cancel()
					if err != nil {
						clog.Debug("keepalive failed", zap.Error(err))
						readCancel()
						return
					}
				}
			}
		}()

		for {
			_, data, err := conn.Read(readCtx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Anything else is a drop; Unregister in the defer runs
				// the elimination path.
				return
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				cs.pushError("bad json")
				continue
			}
			dispatch(dir, cs, cm, clog)
		}
	}
}

// dispatch routes one client message. The message set is closed; anything
// outside it is an error back to the sender.
func dispatch(dir *room.Directory, cs *connState, cm protocol.ClientMessage, log *zap.Logger) {
	switch cm.Type {
	case protocol.CListRooms:
		dir.Inbox() <- room.List{ClientID: cs.clientID}

	case protocol.CCreateRoom:
		cs.username = cm.Username
		dir.Inbox() <- room.Create{ClientID: cs.clientID, Username: cm.Username}

	case protocol.CJoinRoom:
		if cm.Username != "" {
			cs.username = cm.Username
		}
		reply := make(chan error, 1)
		dir.Inbox() <- room.Join{ClientID: cs.clientID, Username: cs.username, RoomID: cm.RoomID, Reply: reply}
		cs.reportErr(await(reply))

	case protocol.CLeaveRoom:
		reply := make(chan error, 1)
		dir.Inbox() <- room.Leave{ClientID: cs.clientID, Reply: reply}
		cs.reportErr(await(reply))

	case protocol.CChangeMode:
		reply := make(chan error, 1)
		dir.Inbox() <- room.ChangeMode{ClientID: cs.clientID, Mode: cm.Mode, Reply: reply}
		cs.reportErr(await(reply))

	case protocol.CStartGame:
		reply := make(chan error, 1)
		dir.Inbox() <- room.Start{ClientID: cs.clientID, Reply: reply}
		cs.reportErr(await(reply))

	case protocol.CPlayCard:
		cs.submitIntent(dir, game.PlayCard{CardID: cm.CardID, TargetSeat: cm.TargetID, Options: cm.Options})

	case protocol.CEndTurn:
		cs.submitIntent(dir, game.EndTurn{})

	case protocol.CLobbyChat:
		dir.Inbox() <- room.LobbyChat{ClientID: cs.clientID, Text: cm.Text}

	case protocol.CChatMessage:
		ref := sessionRef(dir, cs.clientID)
		if ref.Sess == nil {
			cs.pushError("no active game")
			return
		}
		ref.Sess.Inbox() <- session.Chat{Speaker: cs.username, Text: cm.Text}

	default:
		log.Debug("unknown message type", zap.String("type", cm.Type))
		cs.pushError("unknown message type")
	}
}

// submitIntent forwards a mutation request to the client's session and
// reports the validation verdict back to this client only.
func (cs *connState) submitIntent(dir *room.Directory, in game.Intent) {
	ref := sessionRef(dir, cs.clientID)
	if ref.Sess == nil {
		cs.pushError("no active game")
		return
	}
	reply := make(chan error, 1)
	ref.Sess.Inbox() <- session.FromSeat{Seat: ref.Seat, Intent: in, Reply: reply}
	cs.reportErr(await(reply))
}

func sessionRef(dir *room.Directory, clientID string) room.SessionRef {
	reply := make(chan room.SessionRef, 1)
	dir.Inbox() <- room.SessionOf{ClientID: clientID, Reply: reply}
	select {
	case ref := <-reply:
		return ref
	case <-time.After(replyTimeout):
		return room.SessionRef{}
	}
}

func await(reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-time.After(replyTimeout):
		return errors.New("server busy")
	}
}

func (cs *connState) reportErr(err error) {
	if err != nil {
		cs.pushError(err.Error())
	}
}

func (cs *connState) pushError(text string) {
	select {
	case cs.outbox <- protocol.ServerMessage{Type: protocol.SError, Message: text}:
	default:
	}
}
