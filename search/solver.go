package search

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/eval"
	"github.com/castlebay/flipside/move"
	"github.com/castlebay/flipside/zobrist"
)

// thanks Wikipedia:
/*
function negamax(node, depth, α, β, color) is
    if depth = 0 or node is a terminal node then
        return color × the heuristic value of node

    childNodes := generateMoves(node)
    childNodes := orderMoves(childNodes)
    value := −∞
    foreach child in childNodes do
        value := max(value, −negamax(child, depth − 1, −β, −α, −color))
        α := max(α, value)
        if α ≥ β then
            break (* cut-off *)
    return value
(* Initial call for Player A's root node *)
negamax(rootNode, depth, −∞, +∞, 1)
**/

const HugeNumber = int16(32767)

// Move-ordering offsets. Corners first, the hash move next, X-squares
// with an open corner last.
const (
	CornerOffset        = 2000
	HashMoveOffset      = 600
	XSquareOrderPenalty = 500
	EdgeOrderBonus      = 25
	FlipOrderWeight     = 10
)

const defaultTableSizePowerOf2 = 20

type PVLine struct {
	Moves []move.Move
	score int16
}

// Clear the principal variation line.
func (pvLine *PVLine) Clear() {
	pvLine.Moves = nil
}

// Update the principal variation line with a new best move,
// and a new line of best play after the best move.
func (pvLine *PVLine) Update(m move.Move, newPVLine PVLine, score int16) {
	pvLine.Clear()
	pvLine.Moves = append(pvLine.Moves, m)
	pvLine.Moves = append(pvLine.Moves, newPVLine.Moves...)
	pvLine.score = score
}

// Get the best move from the principal variation line.
func (pvLine *PVLine) GetPVMove() move.Move {
	return pvLine.Moves[0]
}

func (pvLine PVLine) String() string {
	var s string
	s = fmt.Sprintf("PV; val %d\n", pvLine.score)
	for i := 0; i < len(pvLine.Moves); i++ {
		s += fmt.Sprintf("%d: %s\n", i+1, pvLine.Moves[i])
	}
	return s
}

func (pvLine PVLine) NLBString() string {
	// no line breaks
	var s string
	s = fmt.Sprintf("PV; val %d; ", pvLine.score)
	for i := 0; i < len(pvLine.Moves); i++ {
		s += fmt.Sprintf("%d: %s; ", i+1, pvLine.Moves[i])
	}
	return s
}

type rootPlay struct {
	m move.Move
	// estimatedValue orders the root moves: a static estimate for the
	// first iteration, then the value returned by the previous
	// iterative-deepening pass.
	estimatedValue int16
}

// A Solver picks the best move for the player on turn using depth-limited
// negamax with alpha-beta pruning. One Solver owns one transposition
// table; it is not safe for concurrent FindBestMove calls.
type Solver struct {
	zobrist   *zobrist.Zobrist
	evaluator *eval.Evaluator
	ttable    *TranspositionTable

	rootBoard     *board.Board
	solvingPlayer board.Cell
	initialMoves  []*rootPlay

	iterativeDeepeningOptim bool
	transpositionTableOptim bool
	tableMemFraction        float64

	principalVariation PVLine
	bestPVValue        int16

	requestedPlies int
	currentIDDepth int
	threads        int
	nodes          atomic.Uint64

	logStream io.Writer
}

// Init initializes the solver with an evaluator. The transposition table
// and iterative deepening default to on, single-threaded.
func (s *Solver) Init(ev *eval.Evaluator) error {
	if ev == nil {
		ev = eval.NewDefault()
	}
	s.evaluator = ev
	s.transpositionTableOptim = true
	s.iterativeDeepeningOptim = true
	s.threads = 1
	s.ttable = &TranspositionTable{}
	s.ttable.SetSingleThreadedMode()
	return nil
}

func (s *Solver) SetIterativeDeepening(id bool) {
	s.iterativeDeepeningOptim = id
}

func (s *Solver) SetTranspositionTableOptim(tt bool) {
	s.transpositionTableOptim = tt
}

// SetTranspositionTable replaces the solver's table, typically to share
// one cache between solvers searching the same game. A table already
// sized for the board keeps its entries; the solver adopts its hasher so
// the stored keys stay valid.
func (s *Solver) SetTranspositionTable(tt *TranspositionTable) {
	s.ttable = tt
}

// SetTableMemFraction sizes the transposition table from a fraction of
// system memory the next time it is (re)built, instead of the fixed
// default.
func (s *Solver) SetTableMemFraction(f float64) {
	s.tableMemFraction = f
}

// SetThreads turns parallel root search on (threads >= 2) or off.
func (s *Solver) SetThreads(threads int) {
	if threads < 2 {
		s.threads = 1
	} else {
		s.threads = threads
	}
}

// SetLogStream turns on the verbose search trace. Single-threaded
// searches only; the trace writer is not synchronized.
func (s *Solver) SetLogStream(l io.Writer) {
	s.logStream = l
}

func (s *Solver) Nodes() uint64 {
	return s.nodes.Load()
}

func (s *Solver) Evaluator() *eval.Evaluator {
	return s.evaluator
}

// PrincipalVariation returns the line of best play found by the last
// search.
func (s *Solver) PrincipalVariation() PVLine {
	return s.principalVariation
}

// prepare syncs the hasher and the transposition table with the board
// dimension. A sized table whose hasher matches the dimension is kept,
// cached entries included, and its hasher is adopted so the stored keys
// stay valid; anything else is rebuilt here, never queried. The table is
// sized whenever the optimization is on, whatever earlier searches did
// with it.
func (s *Solver) prepare(b *board.Board) {
	if s.transpositionTableOptim {
		tz := s.ttable.Zobrist()
		if tz != nil && tz.BoardDim() == b.Dim() && s.ttable.sized() {
			s.zobrist = tz
		} else {
			if s.tableMemFraction > 0 {
				s.ttable.Reset(s.tableMemFraction, b.Dim())
			} else {
				s.ttable.ResetTo(defaultTableSizePowerOf2, b.Dim())
			}
			s.zobrist = s.ttable.Zobrist()
		}
	} else if s.zobrist == nil || s.zobrist.BoardDim() != b.Dim() {
		s.zobrist = &zobrist.Zobrist{}
		s.zobrist.Initialize(b.Dim())
	}
	if s.threads > 1 {
		s.ttable.SetMultiThreadedMode()
	} else {
		s.ttable.SetSingleThreadedMode()
	}
}

// assignEstimates gives every candidate a cheap static ordering score:
// corners first, X-squares with their corner still open last, more flips
// earlier. ttMove, when nonzero, is boosted to the front.
func (s *Solver) assignEstimates(b *board.Board, moves []move.Move, onTurn board.Cell,
	ttMove move.TinyMove) []scoredMove {

	scored := make([]scoredMove, len(moves))
	for i, m := range moves {
		est := 0
		r, c := int(m.Row), int(m.Col)
		if b.IsCorner(r, c) {
			est += CornerOffset
		} else if corner, ok := b.XSquareCorner(r, c); ok &&
			b.Cell(int(corner.Row), int(corner.Col)) == board.Empty {
			est -= XSquareOrderPenalty
		} else if b.IsEdge(r, c) {
			est += EdgeOrderBonus
		}
		est += FlipOrderWeight * b.CountFlips(m, onTurn)
		if ttMove != 0 && m.ToTiny() == ttMove {
			est += HashMoveOffset
		}
		scored[i] = scoredMove{m: m, est: int16(est)}
	}
	// Stable sort over the row-major enumeration keeps ties
	// deterministic.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].est > scored[j].est
	})
	return scored
}

type scoredMove struct {
	m   move.Move
	est int16
}

// max16 returns the larger of x or y.
func max16(x, y int16) int16 {
	if x < y {
		return y
	}
	return x
}

func min16(x, y int16) int16 {
	if x < y {
		return x
	}
	return y
}

func (s *Solver) negamax(ctx context.Context, b *board.Board, nodeKey uint64,
	depth int, α, β int16, onTurn board.Cell, pv *PVLine) (int16, error) {

	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	alphaOrig := α
	var ttMove move.TinyMove

	if s.transpositionTableOptim {
		ttEntry := s.ttable.lookup(nodeKey)
		if ttEntry.valid() && ttEntry.depth() >= uint8(depth) {
			score := ttEntry.score
			flag := ttEntry.flag()
			if flag == TTExact {
				return score, nil
			} else if flag == TTLower {
				α = max16(α, score)
			} else if flag == TTUpper {
				β = min16(β, score)
			}
			if α >= β {
				return score, nil
			}
			// search hash move first.
			ttMove = ttEntry.move()
		}
	}

	if depth == 0 || b.IsTerminal() {
		return s.evaluator.Score(b, onTurn), nil
	}

	opp := onTurn.Opponent()
	children := b.LegalMoves(onTurn)
	if len(children) == 0 {
		// Forced pass. A pass consumes no search depth: it makes no
		// board change, so depth accounting stays tied to placed discs.
		// The opponent is guaranteed a move here (both-stuck is terminal,
		// handled above), so passes cannot recurse unboundedly.
		childPV := PVLine{}
		value, err := s.negamax(ctx, b, s.passKey(nodeKey), depth, -β, -α, opp, &childPV)
		if err != nil {
			return 0, err
		}
		return -value, nil
	}

	ordered := s.assignEstimates(b, children, onTurn, ttMove)

	bestValue := -HugeNumber
	indent := 2 * (s.currentIDDepth - depth)
	if s.logStream != nil {
		fmt.Fprintf(s.logStream, "  %vplays:\n", strings.Repeat(" ", indent))
	}
	var bestMove move.TinyMove
	childPV := PVLine{}
	for _, child := range ordered {
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "  %v- play: %v\n", strings.Repeat(" ", indent), child.m)
		}
		cb := b.Copy()
		flipped, err := cb.Apply(child.m, onTurn)
		if err != nil {
			return 0, err
		}
		s.nodes.Add(1)
		childKey := s.childKey(nodeKey, child.m, flipped, onTurn)
		value, err := s.negamax(ctx, cb, childKey, depth-1, -β, -α, opp, &childPV)
		if err != nil {
			return value, err
		}
		if -value > bestValue {
			bestValue = -value
			bestMove = child.m.ToTiny()
			pv.Update(child.m, childPV, bestValue)
		}
		α = max16(α, bestValue)
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "  %v  value: %v α: %v β: %v\n",
				strings.Repeat(" ", indent), -value, α, β)
		}
		if bestValue >= β {
			break // beta cut-off
		}
		childPV.Clear() // clear the child node's pv for the next child node
	}
	if s.transpositionTableOptim {
		var flag uint8
		if bestValue <= alphaOrig {
			flag = TTUpper
		} else if bestValue >= β {
			flag = TTLower
		} else {
			flag = TTExact
		}
		s.ttable.store(nodeKey, TableEntry{
			score:        bestValue,
			flagAndDepth: flag<<6 + uint8(depth),
			play:         bestMove,
		})
	}
	return bestValue, nil
}

func (s *Solver) childKey(nodeKey uint64, m move.Move, flipped []move.Move,
	mover board.Cell) uint64 {
	if !s.transpositionTableOptim {
		return 0
	}
	return s.zobrist.AddMove(nodeKey, m, flipped, mover)
}

func (s *Solver) passKey(nodeKey uint64) uint64 {
	if !s.transpositionTableOptim {
		return 0
	}
	return s.zobrist.AddPass(nodeKey)
}
