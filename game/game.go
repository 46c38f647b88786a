// Package game drives a Reversi game from seeded board to finished
// outcome: turn order, forced passes, move history, and undo. The board
// package owns the rules; this package owns the clock.
package game

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/move"
)

var ErrGameOver = errors.New("the game is over")

// A Turn is one entry in the game history: either a disc placement with
// its flips, or a forced pass.
type Turn struct {
	Mover   board.Cell
	Move    move.Move
	Flipped []move.Move
	Pass    bool
}

// A Game holds the live board and the turn state. Black moves first.
type Game struct {
	board  *board.Board
	onTurn board.Cell

	history []Turn
	// snapshots[i] is the board as it stood before the i-th placement
	// (passes snapshot nothing); it backs Undo.
	snapshots []*board.Board
}

func NewGame(dim int) (*Game, error) {
	b, err := board.New(dim)
	if err != nil {
		return nil, err
	}
	return &Game{board: b, onTurn: board.Black}, nil
}

// Board returns the live board. Callers that explore (search, analysis)
// must clone it; mutating it directly corrupts the game.
func (g *Game) Board() *board.Board {
	return g.board
}

func (g *Game) Dim() int {
	return g.board.Dim()
}

func (g *Game) PlayerOnTurn() board.Cell {
	return g.onTurn
}

// Playing reports whether the game is still going.
func (g *Game) Playing() bool {
	return !g.board.IsTerminal()
}

func (g *Game) Winner() board.Outcome {
	return g.board.Winner()
}

func (g *Game) Score() (black, white int) {
	return g.board.Score()
}

// History returns a copy of the turns played so far, forced passes
// included.
func (g *Game) History() []Turn {
	h := make([]Turn, len(g.history))
	copy(h, g.history)
	return h
}

// PlayMove applies m for the player on turn and advances the turn,
// recording a forced pass for the opponent when they have no reply. The
// flipped cells are returned for display. Illegal moves surface the
// board's IllegalMoveError untouched.
func (g *Game) PlayMove(m move.Move) ([]move.Move, error) {
	if !g.Playing() {
		return nil, ErrGameOver
	}
	snapshot := g.board.Copy()
	flipped, err := g.board.Apply(m, g.onTurn)
	if err != nil {
		return nil, err
	}
	mover := g.onTurn
	g.snapshots = append(g.snapshots, snapshot)
	g.history = append(g.history, Turn{Mover: mover, Move: m, Flipped: flipped})
	g.advanceTurn(mover.Opponent())
	return flipped, nil
}

// advanceTurn hands the turn to next, skipping them with a recorded pass
// if they cannot move while the game is still on.
func (g *Game) advanceTurn(next board.Cell) {
	g.onTurn = next
	if g.board.PassRequired(next) {
		log.Debug().Str("player", next.String()).Msg("forced-pass")
		g.history = append(g.history, Turn{Mover: next, Pass: true})
		g.onTurn = next.Opponent()
	}
}

// Undo reverts the last disc placement, along with any forced pass
// recorded after it, and gives the turn back to that disc's player.
func (g *Game) Undo() error {
	// Pop trailing passes, then the placement itself.
	i := len(g.history) - 1
	for i >= 0 && g.history[i].Pass {
		i--
	}
	if i < 0 {
		return errors.New("nothing to undo")
	}
	mover := g.history[i].Mover
	g.history = g.history[:i]
	last := len(g.snapshots) - 1
	g.board = g.snapshots[last]
	g.snapshots = g.snapshots[:last]
	g.onTurn = mover
	return nil
}
