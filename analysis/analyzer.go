package analysis

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/game"
)

// A GameAnalyzer rates every move of a game and aggregates per-player
// summaries.
type GameAnalyzer struct {
	rater *Rater
}

func NewGameAnalyzer(rater *Rater) *GameAnalyzer {
	if rater == nil {
		rater = NewRater(nil, DefaultLookaheadPlies)
	}
	return &GameAnalyzer{rater: rater}
}

// AnalyzeGame replays g's history from the seeded board and rates each
// placement (passes are skipped; there is nothing to rate).
func (a *GameAnalyzer) AnalyzeGame(ctx context.Context, g *game.Game) (*GameRatingResult, error) {
	b, err := board.New(g.Dim())
	if err != nil {
		return nil, err
	}

	result := &GameRatingResult{
		PlayerSummaries: [2]*PlayerSummary{
			newPlayerSummary(board.Black),
			newPlayerSummary(board.White),
		},
	}

	turns := g.History()
	for turnNum, turn := range turns {
		if turn.Pass {
			continue
		}
		before := b.Copy()
		if _, err := b.Apply(turn.Move, turn.Mover); err != nil {
			return nil, fmt.Errorf("history replay failed at turn %d: %w", turnNum, err)
		}
		rating, err := a.rater.Rate(ctx, before, b, turn.Move, turn.Mover)
		if err != nil {
			return nil, err
		}
		result.Turns = append(result.Turns, TurnRating{
			TurnNumber: turnNum + 1, // 1-indexed for display
			MoveRating: rating,
		})
		log.Debug().
			Int("turn", turnNum+1).
			Str("player", turn.Mover.String()).
			Str("move", turn.Move.String()).
			Str("rating", rating.Rating.String()).
			Int("delta", rating.Delta).
			Msg("rated-turn")
	}

	a.calculatePlayerSummaries(result)
	return result, nil
}

func newPlayerSummary(p board.Cell) *PlayerSummary {
	return &PlayerSummary{
		Player:        p,
		QualityCounts: make(map[Quality]int),
	}
}

// calculatePlayerSummaries fills the aggregate statistics for each
// player from the rated turns.
func (a *GameAnalyzer) calculatePlayerSummaries(result *GameRatingResult) {
	for _, summary := range result.PlayerSummaries {
		player := summary.Player
		mine := lo.Filter(result.Turns, func(t TurnRating, _ int) bool {
			return t.Mover == player
		})
		summary.MovesRated = len(mine)
		if len(mine) == 0 {
			continue
		}
		var totalDelta float64
		for j, t := range mine {
			summary.QualityCounts[t.Rating]++
			totalDelta += float64(t.Delta)
			if j == 0 || t.Delta > summary.BestDelta {
				summary.BestDelta = t.Delta
				summary.BestMove = t.Move
			}
			if j == 0 || t.Delta < summary.WorstDelta {
				summary.WorstDelta = t.Delta
				summary.WorstMove = t.Move
			}
		}
		summary.AvgDelta = totalDelta / float64(len(mine))
	}
}
