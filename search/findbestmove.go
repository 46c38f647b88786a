package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/move"
)

// FindBestMove runs a depth-limited search for player on b and returns
// the best move with its value. A nil move means player has no legal
// move and must pass; that is not an error. A plies value below 1 is
// treated as 1, so a degenerate request still returns a legal move via
// a one-ply evaluator comparison.
//
// Cancellation is cooperative: the context is consulted at every node
// expansion. If the search is canceled after at least one iterative-
// deepening pass has completed, the best move of the last completed
// depth is returned with a nil error; canceling before any depth
// completes returns the context's error.
//
// The search does not mutate b.
func (s *Solver) FindBestMove(ctx context.Context, b *board.Board, plies int,
	player board.Cell) (*move.Move, int16, error) {

	rootMoves := b.LegalMoves(player)
	if len(rootMoves) == 0 {
		// Forced pass; the caller advances the turn.
		return nil, 0, nil
	}
	if plies < 1 {
		plies = 1
	}

	s.prepare(b)
	s.rootBoard = b.Copy()
	s.solvingPlayer = player
	s.requestedPlies = plies
	s.nodes.Store(0)
	s.principalVariation = PVLine{}
	s.bestPVValue = -HugeNumber

	tstart := time.Now()

	var initialHashKey uint64
	if s.transpositionTableOptim {
		initialHashKey = s.zobrist.Hash(s.rootBoard, player)
	}

	// Root ordering uses static estimates only; the hash move boost is
	// an interior-node concern.
	ordered := s.assignEstimates(s.rootBoard, rootMoves, player, 0)
	s.initialMoves = make([]*rootPlay, len(ordered))
	for i, sm := range ordered {
		s.initialMoves[i] = &rootPlay{m: sm.m, estimatedValue: sm.est}
	}

	g := &errgroup.Group{}
	done := make(chan bool)

	g.Go(func() error {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		var lastNodes uint64
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				nodes := s.nodes.Load()
				log.Debug().Uint64("nps", nodes-lastNodes).Msg("nodes-per-second")
				lastNodes = nodes
			}
		}
	})

	completedDepths := 0
	var searchErr error

	g.Go(func() error {
		start := 1
		if !s.iterativeDeepeningOptim {
			start = plies
		}
		for p := start; p <= plies; p++ {
			log.Debug().Int("plies", p).Msg("deepening-iteratively")
			s.currentIDDepth = p
			if s.logStream != nil {
				fmt.Fprintf(s.logStream, "- ply: %d\n", p)
			}
			err := s.searchRoot(ctx, p, initialHashKey)
			if err != nil {
				searchErr = err
				break
			}
			completedDepths++
			log.Debug().Int16("val", s.bestPVValue).Int("ply", p).
				Str("pv", s.principalVariation.NLBString()).Msg("best-val")
		}
		done <- true
		return nil
	})

	_ = g.Wait()

	if searchErr != nil {
		if errors.Is(searchErr, context.Canceled) || errors.Is(searchErr, context.DeadlineExceeded) {
			if completedDepths == 0 {
				return nil, 0, searchErr
			}
			log.Debug().Int("completed-depths", completedDepths).
				Msg("search-aborted-returning-best-so-far")
		} else {
			return nil, 0, searchErr
		}
	}

	if s.transpositionTableOptim {
		log.Debug().
			Uint64("ttable-created", s.ttable.created.Load()).
			Uint64("ttable-lookups", s.ttable.lookups.Load()).
			Uint64("ttable-hits", s.ttable.hits.Load()).
			Uint64("ttable-t2collisions", s.ttable.t2collisions.Load()).
			Uint64("nodes", s.nodes.Load()).
			Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
			Msg("find-best-move-returning")
	}

	best := s.principalVariation.GetPVMove()
	return &best, s.bestPVValue, nil
}

// searchRoot searches every root candidate at the given depth and
// records the best line. Root candidates keep the value found at this
// depth as their ordering estimate for the next deepening pass.
func (s *Solver) searchRoot(ctx context.Context, depth int, initialHashKey uint64) error {
	var err error
	if s.threads > 1 {
		err = s.searchRootParallel(ctx, depth, initialHashKey)
	} else {
		err = s.searchRootSerial(ctx, depth, initialHashKey)
	}
	if err != nil {
		return err
	}
	// Sort top layer of moves by value for the next time around.
	sort.SliceStable(s.initialMoves, func(i, j int) bool {
		return s.initialMoves[i].estimatedValue > s.initialMoves[j].estimatedValue
	})
	return nil
}

func (s *Solver) searchRootSerial(ctx context.Context, depth int, initialHashKey uint64) error {
	α := -HugeNumber
	β := HugeNumber
	opp := s.solvingPlayer.Opponent()

	bestValue := -HugeNumber
	pv := PVLine{}
	childPV := PVLine{}
	for _, rp := range s.initialMoves {
		cb := s.rootBoard.Copy()
		flipped, err := cb.Apply(rp.m, s.solvingPlayer)
		if err != nil {
			return err
		}
		s.nodes.Add(1)
		childKey := s.childKey(initialHashKey, rp.m, flipped, s.solvingPlayer)
		value, err := s.negamax(ctx, cb, childKey, depth-1, -β, -α, opp, &childPV)
		if err != nil {
			return err
		}
		rp.estimatedValue = -value
		if -value > bestValue {
			bestValue = -value
			pv.Update(rp.m, childPV, bestValue)
		}
		α = max16(α, bestValue)
		childPV.Clear()
	}
	s.principalVariation = pv
	s.bestPVValue = bestValue
	return nil
}

// searchRootParallel searches each root candidate in its own goroutine
// with a full window, sharing the transposition table. Root-child values
// are exact under a full window, so picking the best score (ties to the
// earliest candidate in ordering) is deterministic for a fixed board and
// depth.
func (s *Solver) searchRootParallel(ctx context.Context, depth int, initialHashKey uint64) error {
	opp := s.solvingPlayer.Opponent()

	values := make([]int16, len(s.initialMoves))
	pvs := make([]PVLine, len(s.initialMoves))

	g := &errgroup.Group{}
	g.SetLimit(s.threads)
	for i, rp := range s.initialMoves {
		i, rp := i, rp
		g.Go(func() error {
			cb := s.rootBoard.Copy()
			flipped, err := cb.Apply(rp.m, s.solvingPlayer)
			if err != nil {
				return err
			}
			s.nodes.Add(1)
			childKey := s.childKey(initialHashKey, rp.m, flipped, s.solvingPlayer)
			childPV := PVLine{}
			value, err := s.negamax(ctx, cb, childKey, depth-1, -HugeNumber, HugeNumber,
				opp, &childPV)
			if err != nil {
				return err
			}
			values[i] = -value
			pvs[i] = childPV
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	bestIdx := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[bestIdx] {
			bestIdx = i
		}
	}
	pv := PVLine{}
	pv.Update(s.initialMoves[bestIdx].m, pvs[bestIdx], values[bestIdx])
	for i, rp := range s.initialMoves {
		rp.estimatedValue = values[i]
	}
	s.principalVariation = pv
	s.bestPVValue = values[bestIdx]
	return nil
}
