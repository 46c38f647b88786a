package search

import (
	"context"
	"os"
	"testing"
	"time"

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

// randomPosition plays up to steps random legal moves from the initial
// position and returns the board plus the player on turn.
func randomPosition(t *testing.T, dim, steps int) (*board.Board, board.Cell) {
	t.Helper()
	b, err := board.New(dim)
	if err != nil {
		t.Fatal(err)
	}
	onTurn := board.Black
	for s := 0; s < steps && !b.IsTerminal(); s++ {
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
	return b, onTurn
}

// exhaustiveValue is a reference negamax with no pruning, no table, and
// no move ordering. A forced pass recurses at the same depth.
func exhaustiveValue(ev *eval.Evaluator, b *board.Board, depth int, onTurn board.Cell) int16 {
	if depth == 0 || b.IsTerminal() {
		return ev.Score(b, onTurn)
	}
	opp := onTurn.Opponent()
	children := b.LegalMoves(onTurn)
	if len(children) == 0 {
		return -exhaustiveValue(ev, b, depth, opp)
	}
	best := -HugeNumber
	for _, m := range children {
		cb := b.Copy()
		if _, err := cb.Apply(m, onTurn); err != nil {
			panic(err)
		}
		v := -exhaustiveValue(ev, cb, depth-1, opp)
		if v > best {
			best = v
		}
	}
	return best
}

func newBareSolver(t *testing.T) *Solver {
	t.Helper()
	s := &Solver{}
	if err := s.Init(eval.NewDefault()); err != nil {
		t.Fatal(err)
	}
	s.SetIterativeDeepening(false)
	s.SetTranspositionTableOptim(false)
	return s
}

func TestSearchMatchesExhaustiveMinimax(t *testing.T) {
	is := is.New(t)
	ev := eval.NewDefault()
	for i := 0; i < 100; i++ {
		b, onTurn := randomPosition(t, 6, frand.Intn(30))
		if b.IsTerminal() {
			continue
		}
		if !b.HasLegalMove(onTurn) {
			onTurn = onTurn.Opponent()
		}
		plies := 1 + frand.Intn(4)

		s := newBareSolver(t)
		m, val, err := s.FindBestMove(context.Background(), b, plies, onTurn)
		is.NoErr(err)
		is.True(m != nil)

		want := exhaustiveValue(ev, b, plies, onTurn)
		is.Equal(val, want)

		// The chosen move must actually attain the root value.
		cb := b.Copy()
		_, err = cb.Apply(*m, onTurn)
		is.NoErr(err)
		is.Equal(-exhaustiveValue(ev, cb, plies-1, onTurn.Opponent()), want)
	}
}

func TestDepthOneIsGreedyEvaluation(t *testing.T) {
	is := is.New(t)
	ev := eval.NewDefault()
	b, err := board.New(8)
	is.NoErr(err)

	s := newBareSolver(t)
	m, val, err := s.FindBestMove(context.Background(), b, 1, board.Black)
	is.NoErr(err)
	is.True(m != nil)

	best := -HugeNumber
	chosen := -HugeNumber
	for _, cand := range b.LegalMoves(board.Black) {
		cb := b.Copy()
		_, err := cb.Apply(cand, board.Black)
		is.NoErr(err)
		v := -ev.Score(cb, board.White)
		if v > best {
			best = v
		}
		if cand == *m {
			chosen = v
		}
	}
	is.Equal(val, best)
	is.Equal(chosen, best)
}

func TestNoLegalMovesMeansPass(t *testing.T) {
	is := is.New(t)
	// Walk a game until somebody must pass, then ask the solver.
	for i := 0; i < 200; i++ {
		b, onTurn := randomPosition(t, 4, frand.Intn(16))
		if b.IsTerminal() || b.HasLegalMove(onTurn) {
			continue
		}
		s := newBareSolver(t)
		m, val, err := s.FindBestMove(context.Background(), b, 3, onTurn)
		is.NoErr(err)
		is.True(m == nil)
		is.Equal(val, int16(0))
		return
	}
	t.Skip("no forced-pass position sampled")
}

func TestTranspositionTableDoesNotChangeResult(t *testing.T) {
	is := is.New(t)
	for i := 0; i < 20; i++ {
		dim := []int{6, 8}[i%2]
		b, onTurn := randomPosition(t, dim, frand.Intn(3*dim))
		if b.IsTerminal() {
			continue
		}
		if !b.HasLegalMove(onTurn) {
			onTurn = onTurn.Opponent()
		}
		plies := 3
		if dim == 6 {
			plies = 4
		}

		bare := newBareSolver(t)
		mBare, vBare, err := bare.FindBestMove(context.Background(), b, plies, onTurn)
		is.NoErr(err)

		cached := &Solver{}
		is.NoErr(cached.Init(eval.NewDefault()))
		cached.SetIterativeDeepening(false)
		mTT, vTT, err := cached.FindBestMove(context.Background(), b, plies, onTurn)
		is.NoErr(err)

		is.Equal(vTT, vBare)
		is.Equal(*mTT, *mBare)
	}
}

func TestIterativeDeepeningSameValue(t *testing.T) {
	is := is.New(t)
	for i := 0; i < 10; i++ {
		b, onTurn := randomPosition(t, 6, frand.Intn(20))
		if b.IsTerminal() {
			continue
		}
		if !b.HasLegalMove(onTurn) {
			onTurn = onTurn.Opponent()
		}

		flat := &Solver{}
		is.NoErr(flat.Init(eval.NewDefault()))
		flat.SetIterativeDeepening(false)
		_, vFlat, err := flat.FindBestMove(context.Background(), b, 4, onTurn)
		is.NoErr(err)

		deep := &Solver{}
		is.NoErr(deep.Init(eval.NewDefault()))
		_, vDeep, err := deep.FindBestMove(context.Background(), b, 4, onTurn)
		is.NoErr(err)

		is.Equal(vDeep, vFlat)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	is := is.New(t)
	for i := 0; i < 10; i++ {
		b, onTurn := randomPosition(t, 8, frand.Intn(30))
		if b.IsTerminal() {
			continue
		}
		if !b.HasLegalMove(onTurn) {
			onTurn = onTurn.Opponent()
		}

		serial := &Solver{}
		is.NoErr(serial.Init(eval.NewDefault()))
		serial.SetIterativeDeepening(false)
		mS, vS, err := serial.FindBestMove(context.Background(), b, 3, onTurn)
		is.NoErr(err)

		parallel := &Solver{}
		is.NoErr(parallel.Init(eval.NewDefault()))
		parallel.SetIterativeDeepening(false)
		parallel.SetThreads(4)
		mP, vP, err := parallel.FindBestMove(context.Background(), b, 3, onTurn)
		is.NoErr(err)

		is.Equal(vP, vS)
		is.Equal(*mP, *mS)
	}
}

func TestCancellationBeforeAnyDepth(t *testing.T) {
	is := is.New(t)
	b, err := board.New(8)
	is.NoErr(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Solver{}
	is.NoErr(s.Init(eval.NewDefault()))
	m, _, err := s.FindBestMove(ctx, b, 6, board.Black)
	is.True(err != nil)
	is.True(m == nil)
}

func TestCancellationReturnsBestSoFar(t *testing.T) {
	is := is.New(t)
	b, err := board.New(8)
	is.NoErr(err)

	// Depth 1 completes immediately; the absurd total depth guarantees
	// the deadline fires mid-search.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	s := &Solver{}
	is.NoErr(s.Init(eval.NewDefault()))
	m, _, err := s.FindBestMove(ctx, b, 40, board.Black)
	is.NoErr(err)
	is.True(m != nil)
	is.True(b.IsLegal(int(m.Row), int(m.Col), board.Black))
}

func TestMoveOrderingEstimates(t *testing.T) {
	is := is.New(t)
	b, err := board.New(8)
	is.NoErr(err)

	s := &Solver{}
	is.NoErr(s.Init(eval.NewDefault()))

	moves := b.LegalMoves(board.Black)
	scored := s.assignEstimates(b, moves, board.Black, 0)
	is.Equal(len(scored), len(moves))
	for i := 1; i < len(scored); i++ {
		is.True(scored[i-1].est >= scored[i].est)
	}

	// The hash move jumps the queue.
	last := scored[len(scored)-1].m
	boosted := s.assignEstimates(b, moves, board.Black, last.ToTiny())
	is.Equal(boosted[0].m, last)
}

func TestPVLine(t *testing.T) {
	is := is.New(t)
	var pv PVLine
	inner := PVLine{Moves: []move.Move{move.New(2, 2)}}
	pv.Update(move.New(2, 3), inner, 42)
	is.Equal(pv.GetPVMove(), move.New(2, 3))
	is.Equal(len(pv.Moves), 2)
	is.True(pv.String() != "")
	pv.Clear()
	is.Equal(len(pv.Moves), 0)
}

func TestReenableTranspositionTable(t *testing.T) {
	is := is.New(t)
	b, onTurn := randomPosition(t, 6, 8)
	if b.IsTerminal() {
		t.Skip("sampled a finished game")
	}
	if !b.HasLegalMove(onTurn) {
		onTurn = onTurn.Opponent()
	}

	s := &Solver{}
	is.NoErr(s.Init(eval.NewDefault()))
	s.SetIterativeDeepening(false)

	// First search with the table off, so it is never sized.
	s.SetTranspositionTableOptim(false)
	mOff, vOff, err := s.FindBestMove(context.Background(), b, 3, onTurn)
	is.NoErr(err)

	// Turning it back on must size the table before any lookup.
	s.SetTranspositionTableOptim(true)
	mOn, vOn, err := s.FindBestMove(context.Background(), b, 3, onTurn)
	is.NoErr(err)

	is.Equal(vOn, vOff)
	is.Equal(*mOn, *mOff)
}

func TestSharedTranspositionTable(t *testing.T) {
	is := is.New(t)
	b, onTurn := randomPosition(t, 6, 6)
	if b.IsTerminal() {
		t.Skip("sampled a finished game")
	}
	if !b.HasLegalMove(onTurn) {
		onTurn = onTurn.Opponent()
	}

	first := &Solver{}
	is.NoErr(first.Init(eval.NewDefault()))
	first.SetIterativeDeepening(false)
	m1, v1, err := first.FindBestMove(context.Background(), b, 4, onTurn)
	is.NoErr(err)
	hitsAfterFirst := first.ttable.hits.Load()

	second := &Solver{}
	is.NoErr(second.Init(eval.NewDefault()))
	second.SetIterativeDeepening(false)
	second.SetTranspositionTable(first.ttable)
	m2, v2, err := second.FindBestMove(context.Background(), b, 4, onTurn)
	is.NoErr(err)

	is.Equal(v2, v1)
	is.Equal(*m2, *m1)
	// The warm table must have been consulted, not rebuilt.
	is.True(first.ttable.hits.Load() > hitsAfterFirst)
	is.True(second.Nodes() <= first.Nodes())
}

func TestTableMemFractionSizesTable(t *testing.T) {
	is := is.New(t)
	b, err := board.New(6)
	is.NoErr(err)

	s := &Solver{}
	is.NoErr(s.Init(eval.NewDefault()))
	s.SetIterativeDeepening(false)
	s.SetTableMemFraction(1e-9)
	_, _, err = s.FindBestMove(context.Background(), b, 2, board.Black)
	is.NoErr(err)

	n := len(s.ttable.table)
	is.True(n >= 1<<10)
	is.True(n < 1<<defaultTableSizePowerOf2)
	is.True(n&(n-1) == 0) // power of two, so the index mask is valid
}
