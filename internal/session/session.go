// Package session hosts the authoritative owner of one active match.
// All mutation flows through a single goroutine per session, so intents
// are serialized and no two can touch the same canonical state at once.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"reversus/internal/board"
	"reversus/internal/game"
	"reversus/internal/protocol"
)

type Msg interface{ isSessionMsg() }

// Attach registers a recipient for snapshots. The current snapshot is
// sent immediately so late attachers catch up.
type Attach struct {
	ClientID string
	Seat     string
	Outbox   chan protocol.ServerMessage
}

func (Attach) isSessionMsg() {}

type Detach struct{ ClientID string }

func (Detach) isSessionMsg() {}

// FromSeat carries one intent. Reply receives nil on acceptance or the
// validation error, which the relay reports only to the submitter.
type FromSeat struct {
	Seat   string
	Intent game.Intent
	Reply  chan error
}

func (FromSeat) isSessionMsg() {}

// Disconnect eliminates a seat that dropped mid-match.
type Disconnect struct {
	ClientID string
	Seat     string
	Username string
}

func (Disconnect) isSessionMsg() {}

// Chat is non-mutating traffic: broadcast immediately, no validation,
// no sequence bump.
type Chat struct {
	Speaker string
	Text    string
}

func (Chat) isSessionMsg() {}

// Abort tears the session down without an outcome.
type Abort struct{ Message string }

func (Abort) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// GetView reflects internal state for tests without data races.
type GetView struct{ Reply chan View }

func (GetView) isSessionMsg() {}

type View struct {
	Seq           uint64
	Phase         game.Phase
	CurrentPlayer string
	NumClients    int
	ActiveSeats   []string
	Winner        string
}

// Recorder persists match outcomes. Failures are logged, never allowed
// to affect the session.
type Recorder interface {
	RecordMatchResult(ctx context.Context, winnerID string, loserIDs []string, mode game.Mode) error
}

type recipient struct {
	seat   string
	outbox chan protocol.ServerMessage
}

type Session struct {
	id      string
	roomID  string
	mode    game.Mode
	inbox   chan Msg
	state   *game.State
	seq     uint64
	rules   game.RulesEngine
	layout  board.Layout
	clients map[string]recipient
	ended   bool

	recorder Recorder
	onEnded  func()
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

type Params struct {
	SessionID string
	RoomID    string
	Mode      game.Mode
	State     *game.State
	Rules     game.RulesEngine
	Boards    board.Generator
	Recorder  Recorder
	OnEnded   func() // called once, from the session goroutine
	Logger    *zap.Logger
}

func New(parent context.Context, p Params) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:       p.SessionID,
		roomID:   p.RoomID,
		mode:     p.Mode,
		inbox:    make(chan Msg, 64),
		state:    p.State,
		rules:    p.Rules,
		layout:   p.Boards.GeneratePaths(),
		clients:  make(map[string]recipient),
		recorder: p.Recorder,
		onEnded:  p.OnEnded,
		log:      p.Logger.With(zap.String("session", p.SessionID), zap.String("room", p.RoomID)),
		ctx:      ctx,
		cancel:   cancel,
	}
	go s.loop()
	return s
}

func (s *Session) ID() string        { return s.id }
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Attach:
				s.clients[msg.ClientID] = recipient{seat: msg.Seat, outbox: msg.Outbox}
				s.sendTo(msg.ClientID, s.snapshotMsg(msg.Seat))

			case Detach:
				delete(s.clients, msg.ClientID)

			case FromSeat:
				err := s.apply(msg.Seat, msg.Intent)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case Disconnect:
				s.handleDisconnect(msg)

			case Chat:
				s.state.AppendChat(msg.Speaker, msg.Text)
				s.broadcast(protocol.ServerMessage{Type: protocol.SChatMessage, Speaker: msg.Speaker, Message: msg.Text})

			case GetView:
				msg.Reply <- View{
					Seq:           s.seq,
					Phase:         s.state.Phase,
					CurrentPlayer: s.state.CurrentPlayer,
					NumClients:    len(s.clients),
					ActiveSeats:   s.state.ActiveSeats(),
					Winner:        s.state.Winner,
				}

			case Abort:
				if !s.ended {
					s.ended = true
					s.broadcast(protocol.ServerMessage{Type: protocol.SGameAborted, Message: msg.Message})
				}
				s.notifyEnded()

			case Shutdown:
				s.notifyEnded()
				s.cancel()
				return
			}
		}
	}
}

// apply runs one intent through validation and, on acceptance, bumps the
// sequence number and broadcasts. All-or-nothing: a rejected intent
// leaves state and sequence untouched.
func (s *Session) apply(seat string, in game.Intent) error {
	events, err := game.Apply(s.state, seat, in, s.rules)
	if err != nil {
		if game.IsValidation(err) {
			s.log.Debug("intent rejected", zap.String("seat", seat), zap.Error(err))
			return err
		}
		// The authority cannot construct a next state; abort rather than
		// risk divergence.
		s.log.Error("aborting session", zap.String("seat", seat), zap.Error(err))
		if !s.ended {
			s.ended = true
			s.broadcast(protocol.ServerMessage{Type: protocol.SGameAborted, Message: "internal error, game aborted"})
		}
		s.notifyEnded()
		return err
	}
	s.seq++
	s.broadcastSnapshot()
	for _, ev := range events {
		if ev.Type == game.EvtGameOver {
			s.emitOutcome()
		}
	}
	return nil
}

func (s *Session) handleDisconnect(msg Disconnect) {
	delete(s.clients, msg.ClientID)
	if s.ended || s.state.Phase != game.PhasePlaying {
		return
	}
	if !s.state.Eliminate(msg.Seat) {
		// Already eliminated or never seated; nothing changed, so no
		// sequence bump and no snapshot.
		return
	}
	s.seq++
	s.broadcast(protocol.ServerMessage{
		Type:     protocol.SPlayerDisconnected,
		PlayerID: msg.Seat,
		Username: msg.Username,
	})
	s.broadcastSnapshot()
	if s.state.CheckTerminal() {
		s.seq++
		s.broadcastSnapshot()
		s.emitOutcome()
	}
}

// emitOutcome announces the result exactly once, records it, and asks
// the room to tear the session down.
func (s *Session) emitOutcome() {
	if s.ended {
		return
	}
	s.ended = true

	winner := s.state.Winner
	msg := "The game ended with no winner."
	if winner != "" {
		msg = s.state.Players[winner].Username + " wins!"
	}
	s.broadcast(protocol.ServerMessage{Type: protocol.SGameOver, PlayerID: winner, Message: msg})
	s.log.Info("game over", zap.String("winner", winner), zap.Uint64("seq", s.seq))

	if s.recorder != nil && winner != "" {
		var losers []string
		for _, seat := range s.state.Seats {
			if seat != winner {
				losers = append(losers, seat)
			}
		}
		mode := s.mode
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.recorder.RecordMatchResult(ctx, winner, losers, mode); err != nil {
				s.log.Warn("record match result", zap.Error(err))
			}
		}()
	}
	s.notifyEnded()
}

// notifyEnded tells the room once. The loop keeps draining afterwards so
// late intents get ErrGameOver instead of hanging; the room replies with
// Shutdown when it has dropped its reference.
func (s *Session) notifyEnded() {
	if s.onEnded != nil {
		s.onEnded()
		s.onEnded = nil
	}
}

func (s *Session) snapshotMsg(seat string) protocol.ServerMessage {
	return protocol.ServerMessage{
		Type:  protocol.SGameStateUpdate,
		State: protocol.SnapshotFor(s.id, s.seq, s.state, &s.layout, seat),
	}
}

// broadcastSnapshot fans out a recipient-scoped snapshot to every
// attached client. Fire-and-forget per connection: a full outbox drops
// that recipient without affecting the others or the committed mutation.
func (s *Session) broadcastSnapshot() {
	for id, rc := range s.clients {
		select {
		case rc.outbox <- s.snapshotMsg(rc.seat):
		default:
			s.log.Warn("dropping slow client", zap.String("client", id))
			delete(s.clients, id)
		}
	}
}

func (s *Session) broadcast(msg protocol.ServerMessage) {
	for id, rc := range s.clients {
		select {
		case rc.outbox <- msg:
		default:
			s.log.Warn("dropping slow client", zap.String("client", id))
			delete(s.clients, id)
		}
	}
}

func (s *Session) sendTo(clientID string, msg protocol.ServerMessage) {
	rc, ok := s.clients[clientID]
	if !ok {
		return
	}
	select {
	case rc.outbox <- msg:
	default:
		s.log.Warn("dropping slow client", zap.String("client", clientID))
		delete(s.clients, clientID)
	}
}
