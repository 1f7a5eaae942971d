package game

type Mode string

const (
	ModeSolo2P Mode = "solo-2p"
	ModeSolo3P Mode = "solo-3p"
	ModeSolo4P Mode = "solo-4p"
	ModeDuo    Mode = "duo"
)

// MinPlayers is the seat count required before a room may start.
func (m Mode) MinPlayers() int {
	switch m {
	case ModeSolo2P:
		return 2
	case ModeSolo3P:
		return 3
	case ModeSolo4P, ModeDuo:
		return 4
	default:
		return 0
	}
}

func (m Mode) Valid() bool {
	return m.MinPlayers() > 0
}
