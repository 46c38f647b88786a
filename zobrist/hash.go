package zobrist

import (
	"lukechampine.com/frand"

	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/move"
)

const bignum = 1<<63 - 2

// generate a zobrist hash for a disc game position.
// https://en.wikipedia.org/wiki/Zobrist_hashing
type Zobrist struct {
	whiteTurn uint64

	// posTable[square][color-1]; color is board.Black or board.White.
	posTable [][2]uint64

	boardDim int
}

func (z *Zobrist) Initialize(boardDim int) {
	z.boardDim = boardDim
	z.posTable = make([][2]uint64, boardDim*boardDim)
	for i := 0; i < boardDim*boardDim; i++ {
		z.posTable[i][0] = frand.Uint64n(bignum) + 1
		z.posTable[i][1] = frand.Uint64n(bignum) + 1
	}
	z.whiteTurn = frand.Uint64n(bignum) + 1
}

func (z *Zobrist) BoardDim() int {
	return z.boardDim
}

// Hash computes the full key from scratch: every occupied square XORed
// in, plus the side-to-move toggle. The key is canonical for the cell
// contents; two move orders transposing to the same position and the
// same side to move produce the same key.
func (z *Zobrist) Hash(b *board.Board, sideToMove board.Cell) uint64 {
	key := uint64(0)
	dim := b.Dim()
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			cell := b.Cell(r, c)
			if cell == board.Empty {
				continue
			}
			key ^= z.posTable[r*dim+c][cell-1]
		}
	}
	if sideToMove == board.White {
		key ^= z.whiteTurn
	}
	return key
}

// AddMove incrementally updates key for a played move:
// - XOR in the newly placed disc
// - for every flipped disc, XOR it out of the opponent's color and into
//   the mover's
// - toggle the side to move.
// The result equals a full rehash of the post-move position.
func (z *Zobrist) AddMove(key uint64, m move.Move, flipped []move.Move, mover board.Cell) uint64 {
	opp := mover.Opponent()
	key ^= z.posTable[int(m.Row)*z.boardDim+int(m.Col)][mover-1]
	for _, f := range flipped {
		sq := int(f.Row)*z.boardDim + int(f.Col)
		key ^= z.posTable[sq][opp-1]
		key ^= z.posTable[sq][mover-1]
	}
	key ^= z.whiteTurn
	return key
}

// AddPass toggles the side to move only; a pass changes nothing on the
// board.
func (z *Zobrist) AddPass(key uint64) uint64 {
	return key ^ z.whiteTurn
}
