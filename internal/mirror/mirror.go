// Package mirror is the client-side reconciled view of a match: the
// canonical snapshot stream merged with local-only UI state. The server
// owns everything in the snapshot; the overlay is the explicit allow-list
// of fields the client owns, spliced forward across every replacement.
package mirror

import "reversus/internal/protocol"

// Overlay holds the client-owned transient fields. They survive snapshot
// replacement untouched.
type Overlay struct {
	SelectedCardID int
	PendingTarget  string
}

type Mirror struct {
	sessionID string
	lastSeq   uint64
	primed    bool

	State   *protocol.GameStateSnapshot
	Overlay Overlay
}

func New() *Mirror {
	return &Mirror{}
}

// Reset prepares the mirror for a new match. The next snapshot, whatever
// its session id, binds the mirror to that session.
func (m *Mirror) Reset() {
	*m = Mirror{}
}

// Apply reconciles one snapshot and reports whether anything changed
// (i.e. whether the UI should re-render). Snapshots from another session
// are discarded, as is anything not strictly newer than the last applied
// sequence number; the mirror never regresses.
func (m *Mirror) Apply(s *protocol.GameStateSnapshot) bool {
	if s == nil {
		return false
	}
	if m.primed {
		if s.SessionID != m.sessionID {
			return false
		}
		if s.Seq <= m.lastSeq {
			return false
		}
	}
	m.sessionID = s.SessionID
	m.lastSeq = s.Seq
	m.State = s // wholesale replacement; Overlay is left alone
	m.primed = true
	return true
}

// LastSeq returns the sequence number of the last applied snapshot.
func (m *Mirror) LastSeq() uint64 { return m.lastSeq }

// MySeat returns the local seat id, or "" until the first snapshot
// resolves it.
func (m *Mirror) MySeat() string {
	if m.State == nil {
		return ""
	}
	return m.State.MySeat
}

// ScreenOrder is the seat-to-screen layout for rendering. It is nil
// until the local seat is resolvable.
func (m *Mirror) ScreenOrder() []string {
	seat := m.MySeat()
	if seat == "" {
		return nil
	}
	return Rotate(m.State.SeatOrder, seat)
}

// SelectCard and ClearSelection manage the provisional, reversible UI
// feedback the client is allowed to keep locally.
func (m *Mirror) SelectCard(cardID int) {
	m.Overlay.SelectedCardID = cardID
}

func (m *Mirror) ClearSelection() {
	m.Overlay = Overlay{}
}

// Rotate places the local seat first and keeps the remaining seats in
// their canonical relative order after it. Pure: same inputs, same
// layout, regardless of when snapshots arrive.
func Rotate(seats []string, local string) []string {
	idx := -1
	for i, s := range seats {
		if s == local {
			idx = i
			break
		}
	}
	if idx < 0 {
		return append([]string(nil), seats...)
	}
	out := make([]string, 0, len(seats))
	out = append(out, seats[idx:]...)
	out = append(out, seats[:idx]...)
	return out
}
