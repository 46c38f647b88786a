package move

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// A Move is a single disc placement, named by its 0-indexed board
// coordinates. Moves are plain values; they are produced by the board's
// legal-move enumeration and consumed by Apply and the search.
type Move struct {
	Row uint8
	Col uint8
}

func New(row, col int) Move {
	return Move{Row: uint8(row), Col: uint8(col)}
}

// String renders the move in standard Othello notation: column letter
// plus 1-indexed row, e.g. the move at row 2, col 3 is "d3".
func (m Move) String() string {
	return fmt.Sprintf("%c%d", 'a'+m.Col, m.Row+1)
}

// Parse parses Othello notation ("d3", case-insensitive) for a board of
// the given dimension.
func Parse(s string, dim int) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return Move{}, fmt.Errorf("cannot parse move %q", s)
	}
	col := int(s[0]) - 'a'
	row, err := strconv.Atoi(s[1:])
	if err != nil {
		return Move{}, fmt.Errorf("cannot parse move %q: %w", s, err)
	}
	row-- // 1-indexed in notation
	if row < 0 || row >= dim || col < 0 || col >= dim {
		return Move{}, fmt.Errorf("move %q is off the %dx%d board", s, dim, dim)
	}
	return New(row, col), nil
}

// A TinyMove is a compact representation of a move, used inside
// transposition table entries. Row and column each fit in a nibble since
// the maximum board dimension is 16. The zero value means "no move".
type TinyMove uint16

var ErrNoTinyMove = errors.New("tiny move does not encode a move")

func (m Move) ToTiny() TinyMove {
	return TinyMove(1 + uint16(m.Row)<<4 + uint16(m.Col))
}

func (t TinyMove) ToMove() (Move, error) {
	if t == 0 {
		return Move{}, ErrNoTinyMove
	}
	v := uint16(t) - 1
	return Move{Row: uint8(v >> 4), Col: uint8(v & 0xf)}, nil
}
