// Package eval scores Reversi positions. The score is a weighted sum of
// material, mobility, corner control, edge control, and an X-square
// penalty. Every term is a perspective-minus-opponent difference, so the
// function is antisymmetric (Score(b, p) == -Score(b, p.Opponent()));
// the search's negamax formulation relies on that.
package eval

import (
	"github.com/samber/lo"

	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/move"
)

const (
	// WinScore anchors terminal scores. A decided game is scored
	// sign(material) * WinScore + material, which outranks any
	// non-terminal heuristic score in the same direction.
	WinScore int16 = 30000

	// heuristicCap bounds the composite heuristic so it can never reach
	// terminal magnitude.
	heuristicCap int16 = 20000
)

// Weights are the tunable term coefficients. XSquare is a penalty
// magnitude; it applies only while the adjacent corner is still empty.
type Weights struct {
	Material int16
	Mobility int16
	Corner   int16
	Edge     int16
	XSquare  int16
}

// DefaultWeights is a balanced midgame profile. The exact constants are
// a policy choice; the ordering effects (corners dominate, X-squares
// hurt while the corner is open) are the contract.
func DefaultWeights() Weights {
	return Weights{
		Material: 2,
		Mobility: 8,
		Corner:   120,
		Edge:     10,
		XSquare:  45,
	}
}

type Evaluator struct {
	weights Weights
}

func New(w Weights) *Evaluator {
	return &Evaluator{weights: w}
}

func NewDefault() *Evaluator {
	return New(DefaultWeights())
}

func (e *Evaluator) Weights() Weights {
	return e.weights
}

// Score evaluates b from perspective's point of view; higher is better
// for perspective. Terminal positions are scored purely by material,
// scaled to dominate every heuristic term.
func (e *Evaluator) Score(b *board.Board, perspective board.Cell) int16 {
	opp := perspective.Opponent()
	black, white := b.Score()
	material := black - white
	if perspective == board.White {
		material = -material
	}

	if b.IsTerminal() {
		switch {
		case material > 0:
			return WinScore + int16(material)
		case material < 0:
			return -WinScore + int16(material)
		}
		return 0
	}

	mobility := len(b.LegalMoves(perspective)) - len(b.LegalMoves(opp))

	corners := b.Corners()
	cornerDiff := lo.CountBy(corners[:], func(m move.Move) bool {
		return b.Cell(int(m.Row), int(m.Col)) == perspective
	}) - lo.CountBy(corners[:], func(m move.Move) bool {
		return b.Cell(int(m.Row), int(m.Col)) == opp
	})

	edgeDiff, xDiff := e.edgeAndXSquareDiffs(b, perspective)

	score := int(e.weights.Material)*material +
		int(e.weights.Mobility)*mobility +
		int(e.weights.Corner)*cornerDiff +
		int(e.weights.Edge)*edgeDiff -
		int(e.weights.XSquare)*xDiff

	if score > int(heuristicCap) {
		score = int(heuristicCap)
	} else if score < -int(heuristicCap) {
		score = -int(heuristicCap)
	}
	return int16(score)
}

// edgeAndXSquareDiffs walks the board once. edgeDiff counts non-corner
// edge discs, perspective minus opponent. xDiff counts occupied
// X-squares whose corner is still empty, perspective minus opponent;
// holding such a square typically hands the corner to the opponent, so
// the caller subtracts it.
func (e *Evaluator) edgeAndXSquareDiffs(b *board.Board, perspective board.Cell) (edgeDiff, xDiff int) {
	opp := perspective.Opponent()
	dim := b.Dim()
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			cell := b.Cell(r, c)
			if cell == board.Empty {
				continue
			}
			if b.IsEdge(r, c) && !b.IsCorner(r, c) {
				if cell == perspective {
					edgeDiff++
				} else {
					edgeDiff--
				}
			}
			if corner, ok := b.XSquareCorner(r, c); ok {
				if b.Cell(int(corner.Row), int(corner.Col)) == board.Empty {
					if cell == perspective {
						xDiff++
					} else if cell == opp {
						xDiff--
					}
				}
			}
		}
	}
	return edgeDiff, xDiff
}
