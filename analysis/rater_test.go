package analysis

import (
	"context"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"lukechampine.com/frand"

	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/eval"
	"github.com/castlebay/flipside/move"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func TestQualityForDelta(t *testing.T) {
	is := is.New(t)
	cases := []struct {
		delta int
		want  Quality
	}{
		{300, Excellent},
		{ExcellentThreshold, Excellent},
		{ExcellentThreshold - 1, Good},
		{GoodThreshold, Good},
		{GoodThreshold - 1, Fair},
		{0, Fair},
		{FairThreshold, Fair},
		{FairThreshold - 1, Poor},
		{PoorThreshold, Poor},
		{PoorThreshold - 1, Blunder},
		{-5000, Blunder},
	}
	for _, c := range cases {
		is.Equal(qualityForDelta(c.delta), c.want)
	}
}

func TestQualityOrderingAndNames(t *testing.T) {
	is := is.New(t)
	is.True(Blunder < Poor)
	is.True(Poor < Fair)
	is.True(Fair < Good)
	is.True(Good < Excellent)
	for _, q := range []Quality{Blunder, Poor, Fair, Good, Excellent} {
		is.True(q.String() != "")
	}
}

// playMove clones b, applies m, and returns the pair.
func playMove(t *testing.T, b *board.Board, m move.Move, mover board.Cell) (*board.Board, *board.Board) {
	t.Helper()
	after := b.Copy()
	if _, err := after.Apply(m, mover); err != nil {
		t.Fatal(err)
	}
	return b, after
}

func TestRateOpeningMove(t *testing.T) {
	is := is.New(t)
	b, err := board.New(8)
	is.NoErr(err)
	m := move.New(2, 3)
	before, after := playMove(t, b, m, board.Black)

	ra := NewRater(nil, DefaultLookaheadPlies)
	rating, err := ra.Rate(context.Background(), before, after, m, board.Black)
	is.NoErr(err)
	is.Equal(rating.Move, m)
	is.Equal(rating.Mover, board.Black)
	is.Equal(rating.FlippedCount, 1)
	is.True(!rating.CapturedCorner)
	is.Equal(rating.BoardControlBefore, 50.0)
	is.Equal(rating.BoardControlAfter, 80.0) // 4 of 5 discs after d3
	is.Equal(rating.CornersAfter, 0)
}

func TestRateRejectsOccupiedOrigin(t *testing.T) {
	is := is.New(t)
	b, err := board.New(8)
	is.NoErr(err)
	ra := NewRater(nil, DefaultLookaheadPlies)
	_, err = ra.Rate(context.Background(), b, b, move.New(3, 3), board.Black)
	is.True(err != nil)
}

// cornerPosition walks random games until a corner is legal for the
// player on turn, returning that board and player.
func cornerPosition(t *testing.T) (*board.Board, board.Cell, move.Move) {
	t.Helper()
	for attempt := 0; attempt < 500; attempt++ {
		b, err := board.New(8)
		if err != nil {
			t.Fatal(err)
		}
		onTurn := board.Black
		for !b.IsTerminal() {
			if b.PassRequired(onTurn) {
				onTurn = onTurn.Opponent()
				continue
			}
			for _, c := range b.Corners() {
				if b.IsLegal(int(c.Row), int(c.Col), onTurn) {
					return b, onTurn, c
				}
			}
			moves := b.LegalMoves(onTurn)
			if _, err := b.Apply(moves[frand.Intn(len(moves))], onTurn); err != nil {
				t.Fatal(err)
			}
			onTurn = onTurn.Opponent()
		}
	}
	t.Fatal("no corner opportunity sampled")
	return nil, board.Empty, move.Move{}
}

func TestCornerCaptureNeverRatedBelowGood(t *testing.T) {
	is := is.New(t)
	b, mover, corner := cornerPosition(t)
	before, after := playMove(t, b, corner, mover)

	// A deliberately hostile evaluator that hates having discs: the raw
	// delta of a capturing move stays negative, so only the corner
	// override can lift the rating.
	ra := NewRater(eval.New(eval.Weights{Material: -50}), 1)
	rating, err := ra.Rate(context.Background(), before, after, corner, mover)
	is.NoErr(err)
	is.True(rating.CapturedCorner)
	is.True(rating.Rating >= Good)
}

func TestDeniedCorner(t *testing.T) {
	is := is.New(t)
	// Sample until the player on turn has a move that removes a corner
	// from the opponent's immediate options.
	for attempt := 0; attempt < 500; attempt++ {
		b, mover, _ := cornerPosition(t)
		opp := mover.Opponent()
		// The corner is available to mover; look at it from the other
		// side: play opp moves that strip mover's corner access.
		if cornerMoveCount(b, mover) == 0 {
			continue
		}
		for _, m := range b.LegalMoves(opp) {
			after := b.Copy()
			if _, err := after.Apply(m, opp); err != nil {
				t.Fatal(err)
			}
			if cornerMoveCount(after, mover) >= cornerMoveCount(b, mover) {
				continue
			}
			ra := NewRater(nil, 1)
			rating, err := ra.Rate(context.Background(), b, after, m, opp)
			is.NoErr(err)
			is.True(rating.DeniedCorner)
			is.True(rating.Rating >= Good)
			return
		}
	}
	t.Skip("no corner-denying move sampled")
}

// terminalWin plays random games to completion until the given player
// holds more discs at the end.
func terminalWin(t *testing.T, winner board.Cell) *board.Board {
	t.Helper()
	for attempt := 0; attempt < 500; attempt++ {
		b, err := board.New(8)
		if err != nil {
			t.Fatal(err)
		}
		onTurn := board.Black
		for !b.IsTerminal() {
			if b.PassRequired(onTurn) {
				onTurn = onTurn.Opponent()
				continue
			}
			moves := b.LegalMoves(onTurn)
			if _, err := b.Apply(moves[frand.Intn(len(moves))], onTurn); err != nil {
				t.Fatal(err)
			}
			onTurn = onTurn.Opponent()
		}
		black, white := b.Score()
		if (winner == board.Black) == (black > white) && black != white {
			return b
		}
	}
	t.Fatal("no decisive finish sampled")
	return nil
}

func TestTerminalDeltaExceedsScoreWidth(t *testing.T) {
	is := is.New(t)
	b, err := board.New(8)
	is.NoErr(err)
	if _, err := b.Apply(move.New(2, 3), board.Black); err != nil {
		t.Fatal(err)
	}
	after := terminalWin(t, board.Black)

	// A large negative material weight pushes the pre-move score far
	// below zero while a won endgame scores past +30000; the honest
	// delta is wider than the score type, and truncating it would wrap
	// a winning move into a Blunder.
	ra := NewRater(eval.New(eval.Weights{Material: -1000}), 1)
	rating, err := ra.Rate(context.Background(), b, after, move.New(5, 5), board.Black)
	is.NoErr(err)
	is.True(rating.Delta > 32767)
	is.Equal(rating.Rating, Excellent)
}
