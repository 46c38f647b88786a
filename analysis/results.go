package analysis

import (
	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/move"
)

// Quality is the human-facing rating of a played move. The values are
// ordered; a larger Quality is a better move.
type Quality int

const (
	Blunder Quality = iota
	Poor
	Fair
	Good
	Excellent
)

// String returns a string representation of the quality label.
func (q Quality) String() string {
	switch q {
	case Blunder:
		return "Blunder"
	case Poor:
		return "Poor"
	case Fair:
		return "Fair"
	case Good:
		return "Good"
	case Excellent:
		return "Excellent"
	default:
		return "Unknown"
	}
}

// MoveRating contains the rating for a single played move.
type MoveRating struct {
	Move   move.Move
	Mover  board.Cell
	Rating Quality

	// Delta is the change in the mover's positional advantage across the
	// ply, with the opponent's best reply accounted for at a shallow
	// lookahead. It is the number the Rating thresholds are applied to,
	// kept for display.
	Delta int

	// Strategic overrides that were applied, if any.
	CapturedCorner bool
	DeniedCorner   bool

	// Descriptive extras for display.
	FlippedCount       int
	BoardControlBefore float64 // percentage of discs that are the mover's
	BoardControlAfter  float64
	CornersAfter       int
	EdgesAfter         int
	MobilityChange     int
}

// TurnRating pairs a rated move with its turn number in a game.
type TurnRating struct {
	TurnNumber int
	MoveRating
}

// PlayerSummary aggregates one player's ratings across a game.
type PlayerSummary struct {
	Player        board.Cell
	MovesRated    int
	QualityCounts map[Quality]int
	AvgDelta      float64

	BestMove   move.Move
	BestDelta  int
	WorstMove  move.Move
	WorstDelta int
}

// GameRatingResult is the output of rating every move in a game.
type GameRatingResult struct {
	Turns           []TurnRating
	PlayerSummaries [2]*PlayerSummary
}
