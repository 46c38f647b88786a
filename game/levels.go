package game

import (
	"fmt"

	"github.com/castlebay/flipside/eval"
)

// A Level is an AI difficulty setting, 1 through 6. A level is nothing
// but a (search depth, evaluator weight profile) pair: level 1 plays a
// random legal move, level 2 a greedy positional one, and levels 3 and
// up run the full search at increasing depth with sharper weights.
type Level int

const (
	LevelRandom Level = iota + 1
	LevelGreedy
	LevelShallow
	LevelStandard
	LevelStrong
	LevelMax
)

func (l Level) Valid() bool {
	return l >= LevelRandom && l <= LevelMax
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return [...]string{"Random", "Greedy", "Shallow", "Standard", "Strong", "Max"}[l-1]
}

// SearchDepth is the number of plies the level searches. Levels 1 and 2
// do not search.
func (l Level) SearchDepth() int {
	switch l {
	case LevelShallow:
		return 2
	case LevelStandard:
		return 4
	case LevelStrong:
		return 6
	case LevelMax:
		return 8
	}
	return 0
}

// Weights is the level's evaluator profile. Deeper levels trust mobility
// and corner play more and raw material less.
func (l Level) Weights() eval.Weights {
	switch l {
	case LevelShallow:
		return eval.Weights{Material: 4, Mobility: 4, Corner: 80, Edge: 8, XSquare: 25}
	case LevelStrong:
		return eval.Weights{Material: 1, Mobility: 10, Corner: 140, Edge: 10, XSquare: 60}
	case LevelMax:
		return eval.Weights{Material: 1, Mobility: 12, Corner: 160, Edge: 12, XSquare: 70}
	}
	return eval.DefaultWeights()
}
