// Package board generates the board path layout a match is played on.
// The session asks for one layout at start and ships it to clients
// inside the first snapshot; the layout never changes mid-match.
package board

import "math/rand"

type SpaceKind string

const (
	SpacePlain   SpaceKind = "plain"
	SpaceBonus   SpaceKind = "bonus"
	SpacePenalty SpaceKind = "penalty"
)

type Space struct {
	Index int       `json:"index"`
	Kind  SpaceKind `json:"kind"`
}

type Path struct {
	ID     int     `json:"id"`
	Spaces []Space `json:"spaces"`
}

type Layout struct {
	Paths []Path `json:"paths"`
}

// Generator produces a board layout for a new match.
type Generator interface {
	GeneratePaths() Layout
}

const (
	pathCount      = 4
	spacesPerPath  = 9
	specialPerPath = 2
)

type randomGenerator struct {
	rng *rand.Rand
}

// NewRandomGenerator builds the default generator. Each path gets a fixed
// number of bonus/penalty spaces scattered over plain ones.
func NewRandomGenerator(rng *rand.Rand) Generator {
	return &randomGenerator{rng: rng}
}

func (g *randomGenerator) GeneratePaths() Layout {
	var layout Layout
	for p := 0; p < pathCount; p++ {
		path := Path{ID: p + 1}
		for i := 0; i < spacesPerPath; i++ {
			path.Spaces = append(path.Spaces, Space{Index: i + 1, Kind: SpacePlain})
		}
		for n := 0; n < specialPerPath; n++ {
			idx := g.rng.Intn(spacesPerPath)
			if g.rng.Intn(2) == 0 {
				path.Spaces[idx].Kind = SpaceBonus
			} else {
				path.Spaces[idx].Kind = SpacePenalty
			}
		}
		layout.Paths = append(layout.Paths, path)
	}
	return layout
}
