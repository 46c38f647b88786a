package board

import (
	"github.com/castlebay/flipside/move"
)

// The eight scan directions, in reading order.
var directions = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// wouldFlip scans outward from (row, col) in direction (dr, dc) and
// reports whether placing player's disc there would flip at least one
// disc along that line: a contiguous run of opponent discs terminated by
// one of player's own discs before any empty cell or the board edge.
func (b *Board) wouldFlip(row, col, dr, dc int, player Cell) bool {
	opponent := player.Opponent()
	r, c := row+dr, col+dc
	foundOpponent := false
	for b.onBoard(r, c) {
		switch b.Cell(r, c) {
		case opponent:
			foundOpponent = true
		case player:
			return foundOpponent
		default:
			return false
		}
		r += dr
		c += dc
	}
	return false
}

// IsLegal reports whether placing player's disc at (row, col) is legal.
func (b *Board) IsLegal(row, col int, player Cell) bool {
	if !b.onBoard(row, col) || b.Cell(row, col) != Empty {
		return false
	}
	for _, d := range directions {
		if b.wouldFlip(row, col, d[0], d[1], player) {
			return true
		}
	}
	return false
}

// LegalMoves enumerates every legal move for player in row-major order.
// The order is deterministic; callers that need a different order (the
// search's move ordering) sort a copy. An empty result means the player
// must pass; advancing the turn is the caller's job, not the board's.
func (b *Board) LegalMoves(player Cell) []move.Move {
	var moves []move.Move
	for r := 0; r < b.dim; r++ {
		for c := 0; c < b.dim; c++ {
			if b.IsLegal(r, c, player) {
				moves = append(moves, move.New(r, c))
			}
		}
	}
	return moves
}

// HasLegalMove is an early-exit variant of LegalMoves for terminal and
// pass detection.
func (b *Board) HasLegalMove(player Cell) bool {
	for r := 0; r < b.dim; r++ {
		for c := 0; c < b.dim; c++ {
			if b.IsLegal(r, c, player) {
				return true
			}
		}
	}
	return false
}

// Apply places player's disc at m and flips every bracketed opposing run
// in all eight directions, returning exactly the flipped coordinates.
// An illegal move returns IllegalMoveError and leaves the board
// untouched. Apply mutates the receiver; the search clones first.
func (b *Board) Apply(m move.Move, player Cell) ([]move.Move, error) {
	row, col := int(m.Row), int(m.Col)
	if !b.IsLegal(row, col, player) {
		return nil, IllegalMoveError{Move: m, Player: player}
	}
	b.set(row, col, player)
	var flipped []move.Move
	for _, d := range directions {
		flipped = b.flipLine(row, col, d[0], d[1], player, flipped)
	}
	return flipped, nil
}

// flipLine flips the validated run in one direction, appending the
// flipped coordinates to acc.
func (b *Board) flipLine(row, col, dr, dc int, player Cell, acc []move.Move) []move.Move {
	if !b.wouldFlip(row, col, dr, dc, player) {
		return acc
	}
	opponent := player.Opponent()
	r, c := row+dr, col+dc
	for b.Cell(r, c) == opponent {
		b.set(r, c, player)
		acc = append(acc, move.New(r, c))
		r += dr
		c += dc
	}
	return acc
}

// CountFlips returns how many discs playing m would flip, without
// mutating the board. Zero means the move is not legal.
func (b *Board) CountFlips(m move.Move, player Cell) int {
	row, col := int(m.Row), int(m.Col)
	if !b.onBoard(row, col) || b.Cell(row, col) != Empty {
		return 0
	}
	opponent := player.Opponent()
	total := 0
	for _, d := range directions {
		if !b.wouldFlip(row, col, d[0], d[1], player) {
			continue
		}
		r, c := row+d[0], col+d[1]
		for b.Cell(r, c) == opponent {
			total++
			r += d[0]
			c += d[1]
		}
	}
	return total
}

// IsTerminal reports whether neither player has a legal move. A full
// board is the trivial case: with no empty cells nobody can move.
func (b *Board) IsTerminal() bool {
	return !b.HasLegalMove(Black) && !b.HasLegalMove(White)
}

// Winner returns the game outcome: the player with strictly more discs
// wins, equal counts draw, and OutcomeNone while the game is still on.
func (b *Board) Winner() Outcome {
	if !b.IsTerminal() {
		return OutcomeNone
	}
	black, white := b.Score()
	switch {
	case black > white:
		return OutcomeBlack
	case white > black:
		return OutcomeWhite
	}
	return OutcomeDraw
}

// PassRequired reports whether player must pass: they have no legal move
// but the opponent still does. The calling loop advances the turn.
func (b *Board) PassRequired(player Cell) bool {
	return !b.HasLegalMove(player) && b.HasLegalMove(player.Opponent())
}

// IsCorner reports whether (row, col) is one of the four corners.
func (b *Board) IsCorner(row, col int) bool {
	return (row == 0 || row == b.dim-1) && (col == 0 || col == b.dim-1)
}

// IsEdge reports whether (row, col) lies on the outer ring, corners
// included.
func (b *Board) IsEdge(row, col int) bool {
	return row == 0 || row == b.dim-1 || col == 0 || col == b.dim-1
}

// Corners returns the four corner coordinates.
func (b *Board) Corners() [4]move.Move {
	n := b.dim - 1
	return [4]move.Move{
		move.New(0, 0), move.New(0, n), move.New(n, 0), move.New(n, n),
	}
}

// XSquareCorner maps an X-square (diagonal neighbor of a corner) to its
// corner, or ok=false if (row, col) is not an X-square.
func (b *Board) XSquareCorner(row, col int) (move.Move, bool) {
	n := b.dim - 1
	switch {
	case row == 1 && col == 1:
		return move.New(0, 0), true
	case row == 1 && col == n-1:
		return move.New(0, n), true
	case row == n-1 && col == 1:
		return move.New(n, 0), true
	case row == n-1 && col == n-1:
		return move.New(n, n), true
	}
	return move.Move{}, false
}
