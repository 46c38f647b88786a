package board

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash"

	"github.com/castlebay/flipside/move"
)

// A Cell holds the occupancy of a single board square.
type Cell uint8

const (
	Empty Cell = iota
	Black
	White
)

func (c Cell) String() string {
	switch c {
	case Black:
		return "Black"
	case White:
		return "White"
	}
	return "Empty"
}

// Opponent returns the other color. Calling it on Empty returns Empty.
func (c Cell) Opponent() Cell {
	switch c {
	case Black:
		return White
	case White:
		return Black
	}
	return Empty
}

// An Outcome is the result of a finished game.
type Outcome uint8

const (
	// OutcomeNone means the game is not over.
	OutcomeNone Outcome = iota
	OutcomeBlack
	OutcomeWhite
	OutcomeDraw
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBlack:
		return "Black wins"
	case OutcomeWhite:
		return "White wins"
	case OutcomeDraw:
		return "Draw"
	}
	return "In progress"
}

const (
	// MinDim and MaxDim bound the configurable board size. The dimension
	// must be even so the four-cell center seed is well-defined.
	MinDim = 4
	MaxDim = 16
)

// InvalidBoardSizeError is returned by New for an out-of-range or odd
// dimension. Construction fails fast; no partially seeded board escapes.
type InvalidBoardSizeError struct {
	Dim int
}

func (e InvalidBoardSizeError) Error() string {
	return fmt.Sprintf("invalid board size %d: must be even and between %d and %d",
		e.Dim, MinDim, MaxDim)
}

// IllegalMoveError is returned by Apply when the move does not flip any
// opposing run. It is always surfaced; a bad move is never silently
// corrected or ignored.
type IllegalMoveError struct {
	Move   move.Move
	Player Cell
}

func (e IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s for %s", e.Move, e.Player)
}

// A Board is a size-parameterized Reversi grid. The cell slice is owned
// exclusively by the board; exploratory mutation (e.g. by the search)
// must go through Copy first.
type Board struct {
	dim   int
	cells []Cell
}

// New creates a dim x dim board seeded with the standard diagonal center
// arrangement: White on the main diagonal of the center 2x2 block, Black
// on the anti-diagonal. Black moves first by convention.
func New(dim int) (*Board, error) {
	if dim < MinDim || dim > MaxDim || dim%2 != 0 {
		return nil, InvalidBoardSizeError{Dim: dim}
	}
	b := &Board{
		dim:   dim,
		cells: make([]Cell, dim*dim),
	}
	c := dim / 2
	b.set(c-1, c-1, White)
	b.set(c, c, White)
	b.set(c-1, c, Black)
	b.set(c, c-1, Black)
	return b, nil
}

func (b *Board) Dim() int {
	return b.dim
}

// Cell returns the occupancy at (row, col). Coordinates must be in
// [0, Dim).
func (b *Board) Cell(row, col int) Cell {
	return b.cells[row*b.dim+col]
}

func (b *Board) set(row, col int, c Cell) {
	b.cells[row*b.dim+col] = c
}

func (b *Board) onBoard(row, col int) bool {
	return row >= 0 && row < b.dim && col >= 0 && col < b.dim
}

// Copy returns a fully independent clone.
func (b *Board) Copy() *Board {
	n := &Board{
		dim:   b.dim,
		cells: make([]Cell, len(b.cells)),
	}
	copy(n.cells, b.cells)
	return n
}

// CopyFrom copies other into b without allocating, for hot loops that
// reuse a scratch board. The dimensions must match.
func (b *Board) CopyFrom(other *Board) {
	b.dim = other.dim
	copy(b.cells, other.cells)
}

// Score returns the current disc counts.
func (b *Board) Score() (black, white int) {
	for _, c := range b.cells {
		switch c {
		case Black:
			black++
		case White:
			white++
		}
	}
	return black, white
}

// Occupied returns the total number of discs on the board.
func (b *Board) Occupied() int {
	bl, wh := b.Score()
	return bl + wh
}

// Fingerprint is a canonical content hash of the position: two boards
// with identical dimension and cell contents hash equally regardless of
// the move order that produced them.
func (b *Board) Fingerprint() uint64 {
	h := xxhash.New()
	h.Write([]byte{byte(b.dim)})
	buf := make([]byte, len(b.cells))
	for i, c := range b.cells {
		buf[i] = byte(c)
	}
	h.Write(buf)
	return h.Sum64()
}

// ToDisplayText returns an ASCII rendering with coordinate labels, for
// the interactive shell and for debugging.
func (b *Board) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString("   ")
	for c := 0; c < b.dim; c++ {
		sb.WriteByte(byte('a' + c))
		sb.WriteByte(' ')
	}
	sb.WriteByte('\n')
	for r := 0; r < b.dim; r++ {
		fmt.Fprintf(&sb, "%2d ", r+1)
		for c := 0; c < b.dim; c++ {
			switch b.Cell(r, c) {
			case Black:
				sb.WriteString("● ")
			case White:
				sb.WriteString("○ ")
			default:
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	black, white := b.Score()
	fmt.Fprintf(&sb, "Black %d - White %d\n", black, white)
	return sb.String()
}
