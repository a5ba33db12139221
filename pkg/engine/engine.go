package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/pinyinserve/internal/logger"
	"github.com/bastiangx/pinyinserve/pkg/fuzzy"
	"github.com/bastiangx/pinyinserve/pkg/lang"
	"github.com/bastiangx/pinyinserve/pkg/lexicon"
	"github.com/bastiangx/pinyinserve/pkg/rank"
	"github.com/bastiangx/pinyinserve/pkg/segment"
	"github.com/charmbracelet/log"
)

type pending struct {
	req Request
	gen uint64
}

// selectionWindow is the last delivered list and the context it was ranked in.
type selectionWindow struct {
	gen         uint64
	keys        []string
	candidates  map[string]rank.Candidate
	deliveredAt time.Time
}

type engineStats struct {
	submitted  atomic.Int64
	delivered  atomic.Int64
	superseded atomic.Int64
	selections atomic.Int64
	desyncs    atomic.Int64
	expired    atomic.Int64
}

// Engine is the prediction adapter. Create it with New and release it with Stop.
type Engine struct {
	features  lang.Features
	segmenter atomic.Pointer[segment.Segmenter]
	segOpts   segment.Options
	index     *lexicon.Index
	scorer    *rank.Scorer
	fuzzy     atomic.Pointer[fuzzy.Expander]
	opts      atomic.Pointer[Options]
	handler   SuggestionHandler
	now       func() time.Time
	log       *log.Logger

	requests chan pending
	done     chan struct{}
	stopOnce sync.Once
	latest   atomic.Uint64

	// deliverMu serializes handler calls; it is always taken before mu.
	deliverMu sync.Mutex
	mu        sync.Mutex
	state     State
	window    *selectionWindow

	stats engineStats
}

// New creates an engine over an already loaded index and starts its worker.
func New(features lang.Features, index *lexicon.Index, scorer *rank.Scorer, opts ...Option) *Engine {
	e := &Engine{
		features: features,
		segOpts:  segment.DefaultOptions(),
		index:    index,
		scorer:   scorer,
		now:      time.Now,
		log:      logger.New("engine"),
		requests: make(chan pending, 1),
		done:     make(chan struct{}),
		state:    Idle,
	}
	def := DefaultOptions()
	e.opts.Store(&def)
	for _, opt := range opts {
		opt(e)
	}
	if e.scorer == nil || e.scorer.Model() == nil {
		e.scorer = rank.NewScorer(rank.NewContextModel(0))
	}
	e.segmenter.Store(segment.New(features, e.segOpts))

	go e.worker()
	return e
}

// Predict queues a prediction. It never blocks on the computation.
func (e *Engine) Predict(surroundingLeft, preedit string) {
	e.Submit(Request{SurroundingLeft: surroundingLeft, Preedit: preedit})
}

// Submit queues req, superseding whatever is still pending, and returns its
// generation. It returns 0 once the engine is stopped.
func (e *Engine) Submit(req Request) uint64 {
	select {
	case <-e.done:
		return 0
	default:
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	gen := e.latest.Add(1)
	e.state = Predicting
	e.window = nil
	e.stats.submitted.Add(1)

	p := pending{req: req, gen: gen}
	for {
		select {
		case e.requests <- p:
			return gen
		default:
		}
		select {
		case old := <-e.requests:
			e.log.Debugf("Superseding request %d (%q)", old.gen, old.req.Preedit)
			e.stats.superseded.Add(1)
		default:
		}
	}
}

func (e *Engine) worker() {
	for {
		select {
		case <-e.done:
			return
		case p := <-e.requests:
			if p.gen != e.latest.Load() {
				e.stats.superseded.Add(1)
				continue
			}
			res, keys := e.compute(p.req)
			res.Seq = p.gen
			e.deliver(p.gen, res, keys)
		}
	}
}

// deliver hands res to the handler unless a newer request exists.
func (e *Engine) deliver(gen uint64, res Result, keys []string) {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	if gen != e.latest.Load() || e.stopped() {
		e.mu.Unlock()
		e.log.Debugf("Dropping stale result %d for %q", gen, res.Word)
		e.stats.superseded.Add(1)
		return
	}
	window := &selectionWindow{
		gen:         gen,
		keys:        keys,
		candidates:  make(map[string]rank.Candidate, len(res.Candidates)),
		deliveredAt: e.now(),
	}
	for _, c := range res.Candidates {
		window.candidates[c.Word] = c
	}
	e.window = window
	e.state = AwaitingSelection
	e.mu.Unlock()

	e.stats.delivered.Add(1)
	if e.handler != nil {
		e.handler(res)
	}
}

// Suggest runs a prediction synchronously without touching the engine state.
func (e *Engine) Suggest(surroundingLeft, preedit string) Result {
	res, _ := e.compute(Request{SurroundingLeft: surroundingLeft, Preedit: preedit})
	return res
}

// WordCandidateSelected applies feedback for word if it belongs to the last
// delivered list. Anything else is a no-op.
func (e *Engine) WordCandidateSelected(word string) {
	opts := e.Options()

	e.mu.Lock()
	if e.state != AwaitingSelection || e.window == nil {
		state := e.state
		e.mu.Unlock()
		e.log.Debugf("Ignoring selection %q while %s", word, state)
		e.stats.desyncs.Add(1)
		return
	}
	if opts.SelectionTimeout > 0 && e.now().Sub(e.window.deliveredAt) > opts.SelectionTimeout {
		e.window = nil
		e.state = Idle
		e.mu.Unlock()
		e.log.Debugf("Ignoring selection %q: window expired", word)
		e.stats.expired.Add(1)
		return
	}
	c, ok := e.window.candidates[word]
	if !ok {
		gen := e.window.gen
		e.mu.Unlock()
		e.log.Debugf("Ignoring selection %q: not in delivered list %d", word, gen)
		e.stats.desyncs.Add(1)
		return
	}
	keys := e.window.keys
	e.window = nil
	e.state = Idle
	e.mu.Unlock()

	if err := e.index.Reinforce(c.Source, word, opts.ReinforceDelta); err != nil {
		e.log.Warnf("Reinforcing %q: %v", word, err)
	}
	if len(keys) > 0 {
		e.scorer.Model().Boost(keys, word, opts.ContextBoost)
	}
	e.stats.selections.Add(1)
	e.log.Debugf("Selected %q from %s (context %v)", word, c.Source.String(), keys)
}

// State returns the current adapter state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Options returns a copy of the current runtime options.
func (e *Engine) Options() Options {
	return *e.opts.Load()
}

// SetOptions swaps the runtime options. Requests already computing keep the
// options they started with.
func (e *Engine) SetOptions(o Options) {
	o = o.sanitize()
	e.opts.Store(&o)
	e.log.Debugf("Options updated")
}

// SetSegmentOptions swaps the segmentation bounds for later requests.
func (e *Engine) SetSegmentOptions(o segment.Options) {
	e.segmenter.Store(segment.New(e.features, o))
}

// SetFuzzy swaps the fuzzy expander for later requests. nil disables fuzzy
// variants.
func (e *Engine) SetFuzzy(x *fuzzy.Expander) {
	e.fuzzy.Store(x)
}

// LanguageFeature returns the active language features.
func (e *Engine) LanguageFeature() lang.Features {
	return e.features
}

// Index returns the lexicon the engine reads and reinforces.
func (e *Engine) Index() *lexicon.Index {
	return e.index
}

// Context returns the context model feedback boosts.
func (e *Engine) Context() *rank.ContextModel {
	return e.scorer.Model()
}

// SpellCheckerSuggest is inert.
func (e *Engine) SpellCheckerSuggest(word string, limit int) {}

// AddToSpellCheckerUserWordList is inert.
func (e *Engine) AddToSpellCheckerUserWordList(word string) {}

// SetLanguage is inert; the language is fixed at construction.
func (e *Engine) SetLanguage(languageID string) bool {
	return false
}

// Stop ends the worker. Pending and in-flight results are never delivered.
// It is safe to call more than once and from inside the handler.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
	})
}

func (e *Engine) stopped() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Stats returns counters about requests and feedback.
func (e *Engine) Stats() map[string]int {
	return map[string]int{
		"submitted":  int(e.stats.submitted.Load()),
		"delivered":  int(e.stats.delivered.Load()),
		"superseded": int(e.stats.superseded.Load()),
		"selections": int(e.stats.selections.Load()),
		"desyncs":    int(e.stats.desyncs.Load()),
		"expired":    int(e.stats.expired.Load()),
		"latest":     int(e.latest.Load()),
	}
}
