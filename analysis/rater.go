// Package analysis rates already-played moves for post-move display.
// The rating is derived from the evaluation delta across the ply, with
// the opponent's best reply accounted for at a shallow search depth so
// that a move handing over a corner is not rated on its static merits.
package analysis

import (
	"context"
	"fmt"

	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/eval"
	"github.com/castlebay/flipside/move"
	"github.com/castlebay/flipside/search"
)

// Rating thresholds on the evaluation delta. A corner capture is worth
// Corner weight (~120) in the default profile, so crossing the Excellent
// bar generally requires a corner or a large mobility swing.
const (
	ExcellentThreshold = 150
	GoodThreshold      = 40
	FairThreshold      = -40
	PoorThreshold      = -150
)

// DefaultLookaheadPlies is how deep the rater searches the opponent's
// reply when measuring the after-move value.
const DefaultLookaheadPlies = 2

// A Rater classifies played moves. It is safe to reuse across moves of
// one game; it never mutates the boards it is given. One transposition
// table serves every reply search the rater runs, so positions rated
// earlier transpose into later ratings.
type Rater struct {
	evaluator *eval.Evaluator
	lookahead int
	ttable    *search.TranspositionTable
}

func NewRater(ev *eval.Evaluator, lookaheadPlies int) *Rater {
	if ev == nil {
		ev = eval.NewDefault()
	}
	if lookaheadPlies < 1 {
		lookaheadPlies = DefaultLookaheadPlies
	}
	return &Rater{
		evaluator: ev,
		lookahead: lookaheadPlies,
		ttable:    &search.TranspositionTable{},
	}
}

// Rate classifies the move m that mover played to get from before to
// after. The inputs are not mutated.
func (ra *Rater) Rate(ctx context.Context, before, after *board.Board, m move.Move,
	mover board.Cell) (MoveRating, error) {

	if before.Cell(int(m.Row), int(m.Col)) != board.Empty {
		return MoveRating{}, fmt.Errorf("move %s was not played on an empty cell", m)
	}

	scoreBefore := ra.evaluator.Score(before, mover)
	scoreAfter, err := ra.bestReplyValue(ctx, after, mover)
	if err != nil {
		return MoveRating{}, err
	}
	// Terminal scores sit near ±30000 while heuristic scores are clamped
	// well inside int16 range, so the difference can overflow the score
	// type. Widen before subtracting.
	delta := int(scoreAfter) - int(scoreBefore)

	rating := MoveRating{
		Move:           m,
		Mover:          mover,
		Delta:          delta,
		Rating:         qualityForDelta(delta),
		FlippedCount:   before.CountFlips(m, mover),
		CapturedCorner: before.IsCorner(int(m.Row), int(m.Col)),
		DeniedCorner:   ra.deniedCorner(before, after, mover),
	}

	// Strategic overrides: capturing a corner, or denying the opponent
	// one, is never rated below Good whatever the raw delta says.
	if (rating.CapturedCorner || rating.DeniedCorner) && rating.Rating < Good {
		rating.Rating = Good
	}

	rating.BoardControlBefore = boardControl(before, mover)
	rating.BoardControlAfter = boardControl(after, mover)
	rating.CornersAfter = cornerCount(after, mover)
	rating.EdgesAfter = edgeCount(after, mover)
	rating.MobilityChange = len(after.LegalMoves(mover)) - len(before.LegalMoves(mover))

	return rating, nil
}

func qualityForDelta(delta int) Quality {
	switch {
	case delta >= ExcellentThreshold:
		return Excellent
	case delta >= GoodThreshold:
		return Good
	case delta >= FairThreshold:
		return Fair
	case delta >= PoorThreshold:
		return Poor
	}
	return Blunder
}

// bestReplyValue is the mover's value of the after-move position with
// the opponent's best reply taken into account at the configured shallow
// depth. Terminal positions and forced passes fall back as the rules
// dictate.
func (ra *Rater) bestReplyValue(ctx context.Context, after *board.Board,
	mover board.Cell) (int16, error) {

	if after.IsTerminal() {
		return ra.evaluator.Score(after, mover), nil
	}
	opp := mover.Opponent()
	solver := &search.Solver{}
	if err := solver.Init(ra.evaluator); err != nil {
		return 0, err
	}
	// Shallow reply searches across a game revisit many of the same
	// positions; one shared table lets them transpose.
	solver.SetTranspositionTable(ra.ttable)
	solver.SetIterativeDeepening(false)

	if !after.HasLegalMove(opp) {
		// Opponent must pass; the mover moves again.
		_, val, err := solver.FindBestMove(ctx, after, ra.lookahead, mover)
		return val, err
	}
	_, oppVal, err := solver.FindBestMove(ctx, after, ra.lookahead, opp)
	if err != nil {
		return 0, err
	}
	return -oppVal, nil
}

// deniedCorner reports whether the move removed a corner from the
// opponent's immediately available captures.
func (ra *Rater) deniedCorner(before, after *board.Board, mover board.Cell) bool {
	opp := mover.Opponent()
	return cornerMoveCount(before, opp) > cornerMoveCount(after, opp)
}

func cornerMoveCount(b *board.Board, player board.Cell) int {
	n := 0
	for _, c := range b.Corners() {
		if b.IsLegal(int(c.Row), int(c.Col), player) {
			n++
		}
	}
	return n
}

func boardControl(b *board.Board, player board.Cell) float64 {
	black, white := b.Score()
	total := black + white
	if total == 0 {
		return 0
	}
	own := black
	if player == board.White {
		own = white
	}
	return float64(own) / float64(total) * 100
}

func cornerCount(b *board.Board, player board.Cell) int {
	n := 0
	for _, c := range b.Corners() {
		if b.Cell(int(c.Row), int(c.Col)) == player {
			n++
		}
	}
	return n
}

func edgeCount(b *board.Board, player board.Cell) int {
	n := 0
	dim := b.Dim()
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			if b.Cell(r, c) == player && b.IsEdge(r, c) {
				n++
			}
		}
	}
	return n
}
