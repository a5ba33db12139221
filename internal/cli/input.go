// Package cli implements the pinyinserve command tree and an interactive REPL
// for trying predictions and feedback by hand.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/pinyinserve/internal/logger"
	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/engine"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	wordStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	scoreStyle = lipgloss.NewStyle().Faint(true)
)

// deliveryTimeout bounds how long the REPL waits for the engine worker.
const deliveryTimeout = 2 * time.Second

// InputHandler reads REPL lines, runs predictions through the engine and
// prints the ranked candidates.
//
// A line is a preedit, optionally preceded by context and a '|'
// ("我|qu"). Without explicit context the text committed so far is used.
// Commands start with ':'.
type InputHandler struct {
	in         io.Reader
	log        *log.Logger
	limit      int
	showScores bool
	results    chan engine.Result

	engine    *engine.Engine
	committed string
	last      engine.Result
}

// NewInputHandler creates a REPL reading in and printing to out.
func NewInputHandler(in io.Reader, out io.Writer, limit int, showScores bool) *InputHandler {
	return &InputHandler{
		in:         in,
		log:        logger.NewTo(out, ""),
		limit:      limit,
		showScores: showScores,
		results:    make(chan engine.Result, 8),
	}
}

// Deliver is the engine suggestion handler.
func (h *InputHandler) Deliver(res engine.Result) {
	select {
	case h.results <- res:
	default:
		log.Warnf("Dropping result for %q: REPL is not reading", res.Word)
	}
}

// Start runs the loop until in is exhausted.
func (h *InputHandler) Start(e *engine.Engine) error {
	h.engine = e
	h.log.Print("pinyinserve CLI")
	h.log.Print("type pinyin and press Enter (context|pinyin sets the context, :help lists commands):")

	scanner := bufio.NewScanner(h.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := h.handleCommand(line); quit {
				return nil
			}
			continue
		}
		h.handleInput(line)
	}
	return scanner.Err()
}

func (h *InputHandler) handleCommand(line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "q", "quit":
		return true
	case "s", "sel", "select":
		h.selectCandidate(arg)
	case "c", "clear":
		h.committed = ""
		h.log.Print("context cleared")
	case "ctx":
		h.log.Printf("context: %q", h.committed)
	case "stats":
		for k, v := range h.engine.Stats() {
			h.log.Printf("%-12s %s", k, utils.FormatWithCommas(int64(v)))
		}
		for k, v := range h.engine.Index().Stats() {
			h.log.Printf("%-12s %s", k, utils.FormatWithCommas(int64(v)))
		}
	case "help":
		h.log.Print(":sel <n|word>  select a candidate of the last list")
		h.log.Print(":clear         forget the committed context")
		h.log.Print(":ctx           show the committed context")
		h.log.Print(":stats         engine and lexicon counters")
		h.log.Print(":quit          leave")
	default:
		h.log.Errorf("unknown command %q", cmd)
	}
	return false
}

// selectCandidate accepts a 1-based position or the word itself.
func (h *InputHandler) selectCandidate(arg string) {
	word := arg
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(h.last.Suggestions) {
			h.log.Errorf("no candidate %d in the last list", n)
			return
		}
		word = h.last.Suggestions[n-1]
	}
	if word == "" {
		h.log.Error("nothing to select")
		return
	}
	h.engine.WordCandidateSelected(word)
	h.committed += word
	h.log.Printf("selected %s, context is now %q", wordStyle.Render(word), h.committed)
}

func (h *InputHandler) handleInput(line string) {
	left, preedit := h.committed, line
	if l, p, ok := strings.Cut(line, "|"); ok {
		left, preedit = l, p
	}

	start := time.Now()
	gen := h.engine.Submit(engine.Request{SurroundingLeft: left, Preedit: preedit})
	res, ok := h.await(gen)
	if !ok {
		h.log.Errorf("no result for %q", preedit)
		return
	}
	h.last = res
	log.Debugf("Took [ %v ] for preedit '%s'", time.Since(start), preedit)

	if res.Unmatched != "" {
		h.log.Warnf("unmatched input: %q", res.Unmatched)
	}
	if len(res.Candidates) == 0 {
		h.log.Warnf("No suggestions found for '%s'", preedit)
		return
	}

	cands := res.Candidates
	if h.limit > 0 && len(cands) > h.limit {
		cands = cands[:h.limit]
	}
	h.log.Printf("Found %d suggestions for '%s':", len(res.Candidates), preedit)
	for i, c := range cands {
		line := fmt.Sprintf("%2d. %s  %s", i+1, wordStyle.Render(c.Word), c.Source.String())
		if h.showScores {
			line += scoreStyle.Render(fmt.Sprintf("  (base %s, context %.1f)",
				utils.FormatWithCommas(int64(c.BaseScore)), c.ContextScore))
		}
		h.log.Print(line)
	}
}

// await waits for the result of generation gen, discarding older ones.
func (h *InputHandler) await(gen uint64) (engine.Result, bool) {
	if gen == 0 {
		return engine.Result{}, false
	}
	timeout := time.After(deliveryTimeout)
	for {
		select {
		case res := <-h.results:
			if res.Seq == gen {
				return res, true
			}
		case <-timeout:
			return engine.Result{}, false
		}
	}
}
