package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/eval"
	"github.com/castlebay/flipside/move"
	"github.com/castlebay/flipside/search"
)

// An AIPlayer chooses moves for one side at a fixed difficulty level.
// It owns its solver (and therefore its transposition table); two
// concurrent games need two AIPlayers.
type AIPlayer struct {
	level  Level
	solver *search.Solver
}

func NewAIPlayer(level Level) (*AIPlayer, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("invalid AI level %d", int(level))
	}
	s := &search.Solver{}
	if err := s.Init(eval.New(level.Weights())); err != nil {
		return nil, err
	}
	return &AIPlayer{level: level, solver: s}, nil
}

func (a *AIPlayer) Level() Level {
	return a.level
}

// SetThreads enables parallel root search for the searching levels.
func (a *AIPlayer) SetThreads(threads int) {
	a.solver.SetThreads(threads)
}

// SetTableMemFraction sizes the solver's transposition table from a
// fraction of system memory rather than the fixed default.
func (a *AIPlayer) SetTableMemFraction(f float64) {
	a.solver.SetTableMemFraction(f)
}

// BestMove picks a move for the player on turn. A nil move means the
// player must pass.
func (a *AIPlayer) BestMove(ctx context.Context, g *Game) (*move.Move, error) {
	onTurn := g.PlayerOnTurn()
	moves := g.Board().LegalMoves(onTurn)
	if len(moves) == 0 {
		return nil, nil
	}
	switch a.level {
	case LevelRandom:
		m := moves[frand.Intn(len(moves))]
		return &m, nil
	case LevelGreedy:
		m := greedyPositional(g.Board(), moves)
		return &m, nil
	}
	m, val, err := a.solver.FindBestMove(ctx, g.Board(), a.level.SearchDepth(), onTurn)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("move", m.String()).Int16("val", val).
		Uint64("nodes", a.solver.Nodes()).Str("level", a.level.String()).
		Msg("ai-move")
	return m, nil
}

// greedyPositional prefers corners, then edges, then the center block,
// with no lookahead. The first move of the best class wins, so the
// choice is deterministic.
func greedyPositional(b *board.Board, moves []move.Move) move.Move {
	dim := b.Dim()
	centerStart := dim/2 - 1
	centerEnd := dim / 2
	best := moves[0]
	bestScore := -1
	for _, m := range moves {
		r, c := int(m.Row), int(m.Col)
		score := 1
		switch {
		case b.IsCorner(r, c):
			score += 10
		case b.IsEdge(r, c):
			score += 3
		case r >= centerStart && r <= centerEnd && c >= centerStart && c <= centerEnd:
			score += 2
		}
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	return best
}
