// Package shell is the interactive text front end: a readline loop that
// drives a game against the AI. It renders nothing but plain text; the
// engine itself stays headless.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/castlebay/flipside/analysis"
	"github.com/castlebay/flipside/board"
	"github.com/castlebay/flipside/config"
	"github.com/castlebay/flipside/game"
	"github.com/castlebay/flipside/move"
)

type ShellController struct {
	l   *readline.Instance
	cfg *config.Config

	curGame  *game.Game
	aiplayer *game.AIPlayer
	rater    *analysis.Rater

	// lastBefore and lastAfter back the rate command: the board as it
	// stood on either side of the last placement made with play.
	lastBefore *board.Board
	lastAfter  *board.Board
	lastMove   *move.Move
	lastMover  board.Cell
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func NewShellController(cfg *config.Config) (*ShellController, error) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:              "flipside> ",
		HistoryFile:         "/tmp/flipside-readline.tmp",
		EOFPrompt:           "exit",
		InterruptPrompt:     "^C",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, err
	}
	sc := &ShellController{l: l, cfg: cfg}
	if err := sc.newGame(cfg.GetInt("board-size"), game.Level(cfg.GetInt("ai-level"))); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *ShellController) newGame(dim int, level game.Level) error {
	g, err := game.NewGame(dim)
	if err != nil {
		return err
	}
	ai, err := game.NewAIPlayer(level)
	if err != nil {
		return err
	}
	ai.SetThreads(sc.cfg.GetInt("threads"))
	ai.SetTableMemFraction(sc.cfg.GetFloat64("ttable-mem-fraction"))
	sc.curGame = g
	sc.aiplayer = ai
	sc.rater = analysis.NewRater(nil, analysis.DefaultLookaheadPlies)
	sc.lastBefore = nil
	sc.lastAfter = nil
	sc.lastMove = nil
	return nil
}

func (sc *ShellController) showMessage(msg string) {
	fmt.Fprintln(sc.l.Stderr(), msg)
}

func (sc *ShellController) showBoard() {
	sc.showMessage(sc.curGame.Board().ToDisplayText())
	if sc.curGame.Playing() {
		sc.showMessage(fmt.Sprintf("%s to move", sc.curGame.PlayerOnTurn()))
	} else {
		sc.showMessage(sc.curGame.Winner().String())
	}
}

func usage(w io.Writer) {
	io.WriteString(w, "commands:\n")
	io.WriteString(w, "new [size] [level] - start a new game\n")
	io.WriteString(w, "play <coord> - place a disc, e.g. play d3\n")
	io.WriteString(w, "ai - let the AI play the current turn\n")
	io.WriteString(w, "legal - list legal moves for the player on turn\n")
	io.WriteString(w, "show - print the board\n")
	io.WriteString(w, "rate - rate your last move\n")
	io.WriteString(w, "analyze - rate every move played so far\n")
	io.WriteString(w, "undo - revert the last placement\n")
	io.WriteString(w, "score - print the disc counts\n")
	io.WriteString(w, "exit - leave the shell\n")
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()
	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				return
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			sig <- syscall.SIGINT
			return
		}
		if err := sc.execLine(line); err != nil {
			sc.showMessage("Error: " + err.Error())
		}
	}
}

func (sc *ShellController) execLine(line string) error {
	fields, err := shellquote.Split(line)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "new":
		return sc.handleNew(args)
	case "play":
		return sc.handlePlay(args)
	case "ai":
		return sc.handleAI()
	case "legal":
		return sc.handleLegal()
	case "show":
		sc.showBoard()
		return nil
	case "rate":
		return sc.handleRate()
	case "analyze":
		return sc.handleAnalyze()
	case "undo":
		if err := sc.curGame.Undo(); err != nil {
			return err
		}
		sc.showBoard()
		return nil
	case "score":
		black, white := sc.curGame.Score()
		sc.showMessage(fmt.Sprintf("Black %d - White %d", black, white))
		return nil
	case "help":
		usage(sc.l.Stderr())
		return nil
	}
	return fmt.Errorf("unknown command %q; try help", cmd)
}

func (sc *ShellController) handleNew(args []string) error {
	dim := sc.curGame.Dim()
	level := sc.aiplayer.Level()
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		dim = d
	}
	if len(args) > 1 {
		lv, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		level = game.Level(lv)
	}
	if err := sc.newGame(dim, level); err != nil {
		return err
	}
	sc.showBoard()
	return nil
}

func (sc *ShellController) handlePlay(args []string) error {
	if len(args) != 1 {
		return errors.New("play needs a coordinate, e.g. play d3")
	}
	m, err := move.Parse(args[0], sc.curGame.Dim())
	if err != nil {
		return err
	}
	mover := sc.curGame.PlayerOnTurn()
	before := sc.curGame.Board().Copy()
	flipped, err := sc.curGame.PlayMove(m)
	if err != nil {
		return err
	}
	sc.lastBefore = before
	sc.lastAfter = sc.curGame.Board().Copy()
	sc.lastMove = &m
	sc.lastMover = mover
	sc.showMessage(fmt.Sprintf("%s plays %s, flipping %d", mover, m, len(flipped)))
	sc.showBoard()
	return nil
}

func (sc *ShellController) handleAI() error {
	if !sc.curGame.Playing() {
		return game.ErrGameOver
	}
	onTurn := sc.curGame.PlayerOnTurn()
	m, err := sc.aiplayer.BestMove(context.Background(), sc.curGame)
	if err != nil {
		return err
	}
	if m == nil {
		// Cannot happen: the game auto-passes, so the player on turn
		// always has a move while the game is on.
		return errors.New("no move available")
	}
	flipped, err := sc.curGame.PlayMove(*m)
	if err != nil {
		return err
	}
	sc.showMessage(fmt.Sprintf("%s (AI %s) plays %s, flipping %d",
		onTurn, sc.aiplayer.Level(), m, len(flipped)))
	sc.showBoard()
	return nil
}

func (sc *ShellController) handleLegal() error {
	moves := sc.curGame.Board().LegalMoves(sc.curGame.PlayerOnTurn())
	strs := make([]string, len(moves))
	for i, m := range moves {
		strs[i] = m.String()
	}
	sc.showMessage(strings.Join(strs, " "))
	return nil
}

func (sc *ShellController) handleRate() error {
	if sc.lastMove == nil {
		return errors.New("no move to rate yet")
	}
	rating, err := sc.rater.Rate(context.Background(), sc.lastBefore,
		sc.lastAfter, *sc.lastMove, sc.lastMover)
	if err != nil {
		return err
	}
	sc.showMessage(fmt.Sprintf("%s by %s: %s (delta %+d, flipped %d)",
		rating.Move, rating.Mover, rating.Rating, rating.Delta, rating.FlippedCount))
	return nil
}

func (sc *ShellController) handleAnalyze() error {
	analyzer := analysis.NewGameAnalyzer(sc.rater)
	result, err := analyzer.AnalyzeGame(context.Background(), sc.curGame)
	if err != nil {
		return err
	}
	for _, t := range result.Turns {
		sc.showMessage(fmt.Sprintf("%2d. %s %s: %s (%+d)",
			t.TurnNumber, t.Mover, t.Move, t.Rating, t.Delta))
	}
	for _, s := range result.PlayerSummaries {
		if s.MovesRated == 0 {
			continue
		}
		sc.showMessage(fmt.Sprintf("%s: %d moves, avg delta %.1f, best %s (%+d), worst %s (%+d)",
			s.Player, s.MovesRated, s.AvgDelta, s.BestMove, s.BestDelta,
			s.WorstMove, s.WorstDelta))
	}
	log.Debug().Int("turns", len(result.Turns)).Msg("analyze-done")
	return nil
}
