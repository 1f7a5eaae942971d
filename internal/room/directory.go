// Package room tracks open rooms and their pre-game lifecycle. A single
// directory actor owns every room, so join/leave/mode-change/start are
// atomic per room and two concurrent joins can never both slip past
// capacity.
package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reversus/internal/board"
	"reversus/internal/game"
	"reversus/internal/protocol"
	"reversus/internal/session"
)

var ErrUnknownClient = errors.New("unknown client")
var ErrRoomNotFound = errors.New("room not found")
var ErrRoomFull = errors.New("room is full")
var ErrAlreadyStarted = errors.New("game already started")
var ErrAlreadyInRoom = errors.New("already in a room")
var ErrNotInRoom = errors.New("not in a room")
var ErrNotHost = errors.New("only the host can do that")
var ErrBadMode = errors.New("unknown game mode")
var ErrInsufficientPlayers = errors.New("not enough players for this mode")

const capacity = 4

type Msg interface{ isDirectoryMsg() }

// Register announces a connection and its push channel.
type Register struct {
	ClientID string
	Outbox   chan protocol.ServerMessage
}

func (Register) isDirectoryMsg() {}

// Unregister handles a dropped connection: lobby seats are removed,
// in-game seats are eliminated through the session.
type Unregister struct{ ClientID string }

func (Unregister) isDirectoryMsg() {}

type List struct{ ClientID string }

func (List) isDirectoryMsg() {}

type Create struct {
	ClientID string
	Username string
}

func (Create) isDirectoryMsg() {}

type Join struct {
	ClientID string
	Username string
	RoomID   string
	Reply    chan error
}

func (Join) isDirectoryMsg() {}

type Leave struct {
	ClientID string
	Reply    chan error
}

func (Leave) isDirectoryMsg() {}

type ChangeMode struct {
	ClientID string
	Mode     game.Mode
	Reply    chan error
}

func (ChangeMode) isDirectoryMsg() {}

type Start struct {
	ClientID string
	Reply    chan error
}

func (Start) isDirectoryMsg() {}

type LobbyChat struct {
	ClientID string
	Text     string
}

func (LobbyChat) isDirectoryMsg() {}

// SessionRef resolves a client to its live session and seat, or a zero
// value when it has none.
type SessionRef struct {
	Sess *session.Session
	Seat string
}

type SessionOf struct {
	ClientID string
	Reply    chan SessionRef
}

func (SessionOf) isDirectoryMsg() {}

// SessionEnded is posted by a session's OnEnded hook; the room returns
// to the lobby so the same group can start another match.
type SessionEnded struct {
	RoomID    string
	SessionID string
}

func (SessionEnded) isDirectoryMsg() {}

type Shutdown struct{}

func (Shutdown) isDirectoryMsg() {}

// GetRooms reflects the room list for tests and the HTTP listing.
type GetRooms struct{ Reply chan []protocol.RoomListing }

func (GetRooms) isDirectoryMsg() {}

type member struct {
	clientID string
	username string
	seat     string
	outbox   chan protocol.ServerMessage
}

type room struct {
	id      string
	name    string
	mode    game.Mode
	hostID  string
	status  protocol.RoomStatus
	members []*member
	sess    *session.Session
}

type conn struct {
	outbox chan protocol.ServerMessage
	roomID string
}

type Directory struct {
	inbox    chan Msg
	rooms    map[string]*room
	conns    map[string]*conn
	rules    game.RulesEngine
	boards   board.Generator
	recorder session.Recorder
	rng      *rand.Rand
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

type Params struct {
	Rules    game.RulesEngine
	Boards   board.Generator
	Recorder session.Recorder
	Logger   *zap.Logger
}

func NewDirectory(parent context.Context, p Params) *Directory {
	ctx, cancel := context.WithCancel(parent)
	if p.Rules == nil {
		p.Rules = game.BasicRules{}
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	if p.Boards == nil {
		p.Boards = board.NewRandomGenerator(rng)
	}
	d := &Directory{
		inbox:    make(chan Msg, 64),
		rooms:    make(map[string]*room),
		conns:    make(map[string]*conn),
		rules:    p.Rules,
		boards:   p.Boards,
		recorder: p.Recorder,
		rng:      rng,
		log:      p.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go d.loop()
	return d
}

func (d *Directory) Inbox() chan<- Msg { return d.inbox }

func (d *Directory) loop() {
	for {
		select {
		case <-d.ctx.Done():
			return

		case m := <-d.inbox:
			switch msg := m.(type) {
			case Register:
				d.conns[msg.ClientID] = &conn{outbox: msg.Outbox}
				d.send(msg.ClientID, protocol.ServerMessage{Type: protocol.SConnected, ClientID: msg.ClientID})

			case Unregister:
				d.handleGone(msg.ClientID)

			case List:
				d.send(msg.ClientID, protocol.ServerMessage{Type: protocol.SRoomList, Rooms: d.listings()})

			case Create:
				d.handleCreate(msg)

			case Join:
				msg.Reply <- d.handleJoin(msg)

			case Leave:
				err := d.handleLeave(msg.ClientID)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case ChangeMode:
				msg.Reply <- d.handleChangeMode(msg)

			case Start:
				msg.Reply <- d.handleStart(msg)

			case LobbyChat:
				d.handleLobbyChat(msg)

			case SessionOf:
				msg.Reply <- d.sessionOf(msg.ClientID)

			case SessionEnded:
				d.handleSessionEnded(msg)

			case GetRooms:
				msg.Reply <- d.listings()

			case Shutdown:
				for _, r := range d.rooms {
					d.closeRoom(r, "server shutting down")
				}
				clear(d.rooms)
				d.cancel()
				return
			}
		}
	}
}

func (d *Directory) handleCreate(msg Create) {
	c, ok := d.conns[msg.ClientID]
	if !ok {
		return
	}
	if c.roomID != "" {
		d.sendError(msg.ClientID, ErrAlreadyInRoom.Error())
		return
	}
	r := &room{
		id:     uuid.NewString(),
		name:   fmt.Sprintf("%s's room", msg.Username),
		mode:   game.ModeSolo4P,
		hostID: msg.ClientID,
		status: protocol.RoomWaiting,
	}
	d.rooms[r.id] = r
	d.log.Info("room created", zap.String("room", r.id), zap.String("host", msg.ClientID))
	// The creator joins via its own joinRoom on receipt, like any member.
	d.send(msg.ClientID, protocol.ServerMessage{Type: protocol.SRoomCreated, RoomID: r.id})
	d.broadcastRoomList()
}

func (d *Directory) handleJoin(msg Join) error {
	c, ok := d.conns[msg.ClientID]
	if !ok {
		return ErrUnknownClient
	}
	if c.roomID != "" {
		return ErrAlreadyInRoom
	}
	r, ok := d.rooms[msg.RoomID]
	if !ok {
		return ErrRoomNotFound
	}
	if r.status == protocol.RoomStarted {
		return ErrAlreadyStarted
	}
	if len(r.members) >= capacity {
		return ErrRoomFull
	}
	r.members = append(r.members, &member{
		clientID: msg.ClientID,
		username: msg.Username,
		seat:     d.freeSeat(r),
		outbox:   c.outbox,
	})
	c.roomID = r.id
	d.pushLobbyUpdate(r)
	d.broadcastRoomList()
	return nil
}

// freeSeat hands out the lowest unoccupied slot so a seat freed by a
// lobby leave is reused.
func (d *Directory) freeSeat(r *room) string {
	taken := make(map[string]bool, len(r.members))
	for _, mb := range r.members {
		taken[mb.seat] = true
	}
	for i := 1; i <= capacity; i++ {
		seat := fmt.Sprintf("player-%d", i)
		if !taken[seat] {
			return seat
		}
	}
	return ""
}

func (d *Directory) handleLeave(clientID string) error {
	c, ok := d.conns[clientID]
	if !ok || c.roomID == "" {
		return ErrNotInRoom
	}
	r := d.rooms[c.roomID]
	c.roomID = ""
	if r == nil {
		return nil
	}

	var left *member
	for i, mb := range r.members {
		if mb.clientID == clientID {
			left = mb
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	if left == nil {
		return ErrNotInRoom
	}

	if r.status == protocol.RoomStarted && r.sess != nil {
		r.sess.Inbox() <- session.Disconnect{ClientID: clientID, Seat: left.seat, Username: left.username}
	}

	if len(r.members) == 0 {
		d.closeRoom(r, "")
		return nil
	}
	if r.hostID == clientID {
		r.hostID = r.members[0].clientID
	}
	d.pushLobbyUpdate(r)
	d.broadcastRoomList()
	return nil
}

func (d *Directory) handleChangeMode(msg ChangeMode) error {
	r, mb := d.roomOf(msg.ClientID)
	if r == nil || mb == nil {
		return ErrNotInRoom
	}
	if r.hostID != msg.ClientID {
		return ErrNotHost
	}
	if r.status != protocol.RoomWaiting {
		return ErrAlreadyStarted
	}
	if !msg.Mode.Valid() {
		return ErrBadMode
	}
	r.mode = msg.Mode
	d.pushLobbyUpdate(r)
	d.broadcastRoomList()
	return nil
}

func (d *Directory) handleStart(msg Start) error {
	r, _ := d.roomOf(msg.ClientID)
	if r == nil {
		return ErrNotInRoom
	}
	if r.hostID != msg.ClientID {
		return ErrNotHost
	}
	if r.status != protocol.RoomWaiting {
		return ErrAlreadyStarted
	}
	if len(r.members) < r.mode.MinPlayers() {
		return ErrInsufficientPlayers
	}

	seats := make([]game.SeatInfo, 0, len(r.members))
	for _, mb := range r.members {
		seats = append(seats, game.SeatInfo{Seat: mb.seat, Username: mb.username})
	}
	// Each session gets its own rng; the canonical state is owned by the
	// session goroutine from here on.
	state := game.NewState(seats, rand.New(rand.NewSource(d.rng.Int63())))

	roomID := r.id
	sessionID := uuid.NewString()
	r.sess = session.New(d.ctx, session.Params{
		SessionID: sessionID,
		RoomID:    roomID,
		Mode:      r.mode,
		State:     state,
		Rules:     d.rules,
		Boards:    d.boards,
		Recorder:  d.recorder,
		OnEnded: func() {
			select {
			case d.inbox <- SessionEnded{RoomID: roomID, SessionID: sessionID}:
			case <-d.ctx.Done():
			}
		},
		Logger: d.log,
	})
	r.status = protocol.RoomStarted
	d.log.Info("game started", zap.String("room", r.id), zap.String("mode", string(r.mode)),
		zap.Int("players", len(r.members)))

	for _, mb := range r.members {
		d.send(mb.clientID, protocol.ServerMessage{Type: protocol.SGameStarted})
		r.sess.Inbox() <- session.Attach{ClientID: mb.clientID, Seat: mb.seat, Outbox: mb.outbox}
	}
	d.broadcastRoomList()
	return nil
}

func (d *Directory) handleLobbyChat(msg LobbyChat) {
	r, mb := d.roomOf(msg.ClientID)
	if r == nil || mb == nil {
		return
	}
	out := protocol.ServerMessage{Type: protocol.SLobbyChat, Speaker: mb.username, Message: msg.Text}
	for _, m := range r.members {
		d.send(m.clientID, out)
	}
}

func (d *Directory) handleGone(clientID string) {
	_ = d.handleLeave(clientID)
	delete(d.conns, clientID)
}

func (d *Directory) handleSessionEnded(msg SessionEnded) {
	r, ok := d.rooms[msg.RoomID]
	if !ok || r.sess == nil || r.sess.ID() != msg.SessionID {
		return
	}
	r.sess.Inbox() <- session.Shutdown{}
	r.sess = nil
	r.status = protocol.RoomWaiting
	if len(r.members) == 0 {
		d.closeRoom(r, "")
		return
	}
	d.pushLobbyUpdate(r)
	d.broadcastRoomList()
}

func (d *Directory) sessionOf(clientID string) SessionRef {
	r, mb := d.roomOf(clientID)
	if r == nil || mb == nil || r.sess == nil {
		return SessionRef{}
	}
	return SessionRef{Sess: r.sess, Seat: mb.seat}
}

func (d *Directory) closeRoom(r *room, reason string) {
	if r.sess != nil {
		r.sess.Inbox() <- session.Abort{Message: "room disbanded"}
		r.sess.Inbox() <- session.Shutdown{}
		r.sess = nil
	}
	r.status = protocol.RoomClosed
	for _, mb := range r.members {
		if reason != "" {
			d.send(mb.clientID, protocol.ServerMessage{Type: protocol.SKicked, Message: reason})
		}
		if c, ok := d.conns[mb.clientID]; ok && c.roomID == r.id {
			c.roomID = ""
		}
	}
	r.members = nil
	delete(d.rooms, r.id)
	d.log.Info("room closed", zap.String("room", r.id))
	d.broadcastRoomList()
}

func (d *Directory) roomOf(clientID string) (*room, *member) {
	c, ok := d.conns[clientID]
	if !ok || c.roomID == "" {
		return nil, nil
	}
	r, ok := d.rooms[c.roomID]
	if !ok {
		return nil, nil
	}
	for _, mb := range r.members {
		if mb.clientID == clientID {
			return r, mb
		}
	}
	return r, nil
}

func (d *Directory) listings() []protocol.RoomListing {
	out := make([]protocol.RoomListing, 0, len(d.rooms))
	for _, r := range d.rooms {
		out = append(out, protocol.RoomListing{
			ID:          r.id,
			Name:        r.name,
			PlayerCount: len(r.members),
			Capacity:    capacity,
			Mode:        r.mode,
			Status:      r.status,
		})
	}
	return out
}

func (d *Directory) snapshot(r *room) *protocol.RoomSnapshot {
	snap := &protocol.RoomSnapshot{
		ID:     r.id,
		Name:   r.name,
		Mode:   r.mode,
		HostID: r.hostID,
		Status: r.status,
	}
	for _, mb := range r.members {
		snap.Members = append(snap.Members, protocol.RoomMember{
			ClientID: mb.clientID,
			Username: mb.username,
			Seat:     mb.seat,
		})
	}
	return snap
}

func (d *Directory) pushLobbyUpdate(r *room) {
	snap := d.snapshot(r)
	for _, mb := range r.members {
		d.send(mb.clientID, protocol.ServerMessage{Type: protocol.SLobbyUpdate, Room: snap})
	}
}

// broadcastRoomList refreshes the lobby browser of every connection not
// currently seated in a room.
func (d *Directory) broadcastRoomList() {
	listings := d.listings()
	for id, c := range d.conns {
		if c.roomID != "" {
			continue
		}
		d.send(id, protocol.ServerMessage{Type: protocol.SRoomList, Rooms: listings})
	}
}

func (d *Directory) send(clientID string, msg protocol.ServerMessage) {
	c, ok := d.conns[clientID]
	if !ok {
		return
	}
	select {
	case c.outbox <- msg:
	default:
		// Slow consumer; the ws layer will notice and unregister.
	}
}

func (d *Directory) sendError(clientID, text string) {
	d.send(clientID, protocol.ServerMessage{Type: protocol.SError, Message: text})
}
