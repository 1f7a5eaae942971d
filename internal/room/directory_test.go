package room

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"reversus/internal/game"
	"reversus/internal/protocol"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewDirectory(ctx, Params{Logger: zap.NewNop()})
}

func recvType(t *testing.T, ch <-chan protocol.ServerMessage, typ string, within time.Duration) protocol.ServerMessage {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for %s", typ)
			}
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
			return protocol.ServerMessage{} // unreachable
		}
	}
}

func recvErr(t *testing.T, ch <-chan error, within time.Duration) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(within):
		t.Fatalf("timed out waiting for reply")
		return nil // unreachable
	}
}

func connect(t *testing.T, d *Directory, clientID string) chan protocol.ServerMessage {
	t.Helper()
	out := make(chan protocol.ServerMessage, 16)
	d.Inbox() <- Register{ClientID: clientID, Outbox: out}
	msg := recvType(t, out, protocol.SConnected, time.Second)
	if msg.ClientID != clientID {
		t.Fatalf("want clientId %s, got %s", clientID, msg.ClientID)
	}
	return out
}

func createRoom(t *testing.T, d *Directory, out chan protocol.ServerMessage, clientID, username string) string {
	t.Helper()
	d.Inbox() <- Create{ClientID: clientID, Username: username}
	msg := recvType(t, out, protocol.SRoomCreated, time.Second)
	return msg.RoomID
}

func join(t *testing.T, d *Directory, clientID, username, roomID string) error {
	t.Helper()
	reply := make(chan error, 1)
	d.Inbox() <- Join{ClientID: clientID, Username: username, RoomID: roomID, Reply: reply}
	return recvErr(t, reply, time.Second)
}

func start(t *testing.T, d *Directory, clientID string) error {
	t.Helper()
	reply := make(chan error, 1)
	d.Inbox() <- Start{ClientID: clientID, Reply: reply}
	return recvErr(t, reply, time.Second)
}

func changeMode(t *testing.T, d *Directory, clientID string, mode game.Mode) error {
	t.Helper()
	reply := make(chan error, 1)
	d.Inbox() <- ChangeMode{ClientID: clientID, Mode: mode, Reply: reply}
	return recvErr(t, reply, time.Second)
}

func TestCreateAndJoinFlow(t *testing.T) {
	d := newTestDirectory(t)
	host := connect(t, d, "c1")
	guest := connect(t, d, "c2")

	roomID := createRoom(t, d, host, "c1", "alice")
	if err := join(t, d, "c1", "alice", roomID); err != nil {
		t.Fatalf("host join: %v", err)
	}
	if err := join(t, d, "c2", "bob", roomID); err != nil {
		t.Fatalf("guest join: %v", err)
	}

	msg := recvType(t, guest, protocol.SLobbyUpdate, time.Second)
	if msg.Room.HostID != "c1" {
		t.Fatalf("want host c1, got %s", msg.Room.HostID)
	}
	if len(msg.Room.Members) != 2 {
		t.Fatalf("want 2 members, got %d", len(msg.Room.Members))
	}
	if msg.Room.Members[0].Seat != "player-1" || msg.Room.Members[1].Seat != "player-2" {
		t.Fatalf("unexpected seats: %+v", msg.Room.Members)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	d := newTestDirectory(t)
	connect(t, d, "c1")

	if err := join(t, d, "c1", "alice", "no-such-room"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
}

func TestJoinFromUnknownClient(t *testing.T) {
	d := newTestDirectory(t)
	host := connect(t, d, "c1")
	roomID := createRoom(t, d, host, "c1", "alice")

	if err := join(t, d, "ghost", "mallory", roomID); !errors.Is(err, ErrUnknownClient) {
		t.Fatalf("want ErrUnknownClient, got %v", err)
	}
}

func TestJoinFullRoom(t *testing.T) {
	d := newTestDirectory(t)
	host := connect(t, d, "c1")
	roomID := createRoom(t, d, host, "c1", "alice")

	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("c%d", i)
		if i > 1 {
			connect(t, d, id)
		}
		if err := join(t, d, id, "user-"+id, roomID); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	connect(t, d, "c5")
	if err := join(t, d, "c5", "eve", roomID); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("want ErrRoomFull, got %v", err)
	}
}

func TestStartGameModeThreshold(t *testing.T) {
	d := newTestDirectory(t)
	host := connect(t, d, "c1")
	roomID := createRoom(t, d, host, "c1", "alice")
	_ = join(t, d, "c1", "alice", roomID)
	connect(t, d, "c2")
	_ = join(t, d, "c2", "bob", roomID)

	if err := changeMode(t, d, "c1", game.ModeSolo3P); err != nil {
		t.Fatalf("change mode: %v", err)
	}
	if err := start(t, d, "c1"); !errors.Is(err, ErrInsufficientPlayers) {
		t.Fatalf("want ErrInsufficientPlayers with 2 seats, got %v", err)
	}

	guest := connect(t, d, "c3")
	_ = join(t, d, "c3", "carol", roomID)
	if err := start(t, d, "c1"); err != nil {
		t.Fatalf("start with 3 seats: %v", err)
	}

	_ = recvType(t, guest, protocol.SGameStarted, time.Second)
	snap := recvType(t, guest, protocol.SGameStateUpdate, time.Second)
	if snap.State.MySeat != "player-3" {
		t.Fatalf("want own seat player-3, got %s", snap.State.MySeat)
	}
	if len(snap.State.SeatOrder) != 3 {
		t.Fatalf("want 3 seats, got %v", snap.State.SeatOrder)
	}

	// Late joiners bounce off a started room.
	connect(t, d, "c4")
	if err := join(t, d, "c4", "dave", roomID); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("want ErrAlreadyStarted, got %v", err)
	}
}

func TestChangeModeHostOnly(t *testing.T) {
	d := newTestDirectory(t)
	host := connect(t, d, "c1")
	roomID := createRoom(t, d, host, "c1", "alice")
	_ = join(t, d, "c1", "alice", roomID)
	connect(t, d, "c2")
	_ = join(t, d, "c2", "bob", roomID)

	if err := changeMode(t, d, "c2", game.ModeSolo2P); !errors.Is(err, ErrNotHost) {
		t.Fatalf("want ErrNotHost, got %v", err)
	}
	if err := changeMode(t, d, "c1", game.Mode("bogus")); !errors.Is(err, ErrBadMode) {
		t.Fatalf("want ErrBadMode, got %v", err)
	}
}

func TestHostLeavePromotesNextMember(t *testing.T) {
	d := newTestDirectory(t)
	host := connect(t, d, "c1")
	guest := connect(t, d, "c2")
	roomID := createRoom(t, d, host, "c1", "alice")
	_ = join(t, d, "c1", "alice", roomID)
	_ = join(t, d, "c2", "bob", roomID)
	_ = recvType(t, guest, protocol.SLobbyUpdate, time.Second)

	reply := make(chan error, 1)
	d.Inbox() <- Leave{ClientID: "c1", Reply: reply}
	if err := recvErr(t, reply, time.Second); err != nil {
		t.Fatalf("leave: %v", err)
	}

	msg := recvType(t, guest, protocol.SLobbyUpdate, time.Second)
	if msg.Room.HostID != "c2" {
		t.Fatalf("want promoted host c2, got %s", msg.Room.HostID)
	}
}

func TestLastLeaveClosesRoom(t *testing.T) {
	d := newTestDirectory(t)
	host := connect(t, d, "c1")
	roomID := createRoom(t, d, host, "c1", "alice")
	_ = join(t, d, "c1", "alice", roomID)

	reply := make(chan error, 1)
	d.Inbox() <- Leave{ClientID: "c1", Reply: reply}
	_ = recvErr(t, reply, time.Second)

	rooms := make(chan []protocol.RoomListing, 1)
	d.Inbox() <- GetRooms{Reply: rooms}
	select {
	case listings := <-rooms:
		if len(listings) != 0 {
			t.Fatalf("want no rooms, got %+v", listings)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for room list")
	}
}

func TestLobbyChatReachesMembers(t *testing.T) {
	d := newTestDirectory(t)
	host := connect(t, d, "c1")
	guest := connect(t, d, "c2")
	roomID := createRoom(t, d, host, "c1", "alice")
	_ = join(t, d, "c1", "alice", roomID)
	_ = join(t, d, "c2", "bob", roomID)

	d.Inbox() <- LobbyChat{ClientID: "c1", Text: "ready?"}
	msg := recvType(t, guest, protocol.SLobbyChat, time.Second)
	if msg.Speaker != "alice" || msg.Message != "ready?" {
		t.Fatalf("unexpected lobby chat: %+v", msg)
	}
}

func TestMemberDropDuringMatchEndsGameAndReopensRoom(t *testing.T) {
	d := newTestDirectory(t)
	host := connect(t, d, "c1")
	guest := connect(t, d, "c2")
	roomID := createRoom(t, d, host, "c1", "alice")
	_ = join(t, d, "c1", "alice", roomID)
	_ = join(t, d, "c2", "bob", roomID)

	if err := changeMode(t, d, "c1", game.ModeSolo2P); err != nil {
		t.Fatalf("change mode: %v", err)
	}
	if err := start(t, d, "c1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = recvType(t, guest, protocol.SGameStarted, time.Second)

	d.Inbox() <- Unregister{ClientID: "c1"}

	over := recvType(t, guest, protocol.SGameOver, 2*time.Second)
	if over.PlayerID != "player-2" {
		t.Fatalf("want winner player-2, got %s", over.PlayerID)
	}
	lobby := recvType(t, guest, protocol.SLobbyUpdate, 2*time.Second)
	if lobby.Room.Status != protocol.RoomWaiting {
		t.Fatalf("want room back in waiting, got %s", lobby.Room.Status)
	}
	if lobby.Room.HostID != "c2" {
		t.Fatalf("want host promoted to c2, got %s", lobby.Room.HostID)
	}
}
