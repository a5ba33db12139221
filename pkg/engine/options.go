package engine

import (
	"time"

	"github.com/bastiangx/pinyinserve/pkg/fuzzy"
	"github.com/bastiangx/pinyinserve/pkg/rank"
	"github.com/bastiangx/pinyinserve/pkg/segment"
)

// Options are the runtime knobs of the engine. They can be swapped while the
// engine runs with SetOptions.
type Options struct {
	// MaxSuggestions truncates delivered lists. 0 defers to the language features.
	MaxSuggestions int
	// SelectionTimeout bounds how long a delivered list accepts a selection.
	// 0 disables the timeout.
	SelectionTimeout time.Duration
	ReinforceDelta   int64
	ContextBoost     float64
	MaxContextTokens int
	Weights          rank.Weights
	// PredictLonger adds longer words starting with a complete sequence.
	PredictLonger bool
	PrefixPenalty float64
	FuzzyPenalty  float64
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		SelectionTimeout: 30 * time.Second,
		ReinforceDelta:   20,
		ContextBoost:     1,
		MaxContextTokens: 2,
		Weights:          rank.DefaultWeights(),
		PredictLonger:    true,
		PrefixPenalty:    0.5,
		FuzzyPenalty:     0.5,
	}
}

// sanitize replaces values that would break ranking or feedback with defaults.
func (o Options) sanitize() Options {
	def := DefaultOptions()
	if o.MaxSuggestions < 0 {
		o.MaxSuggestions = 0
	}
	if o.SelectionTimeout < 0 {
		o.SelectionTimeout = 0
	}
	if o.ReinforceDelta <= 0 {
		o.ReinforceDelta = def.ReinforceDelta
	}
	if o.ContextBoost <= 0 {
		o.ContextBoost = def.ContextBoost
	}
	if o.MaxContextTokens < 0 {
		o.MaxContextTokens = 0
	}
	if o.PrefixPenalty < 0 || o.PrefixPenalty > 1 {
		o.PrefixPenalty = def.PrefixPenalty
	}
	if o.FuzzyPenalty < 0 || o.FuzzyPenalty > 1 {
		o.FuzzyPenalty = def.FuzzyPenalty
	}
	return o
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithHandler registers the suggestions-ready callback.
func WithHandler(h SuggestionHandler) Option {
	return func(e *Engine) {
		e.handler = h
	}
}

// WithOptions sets the initial runtime options.
func WithOptions(o Options) Option {
	return func(e *Engine) {
		o = o.sanitize()
		e.opts.Store(&o)
	}
}

// WithSegmentOptions bounds segmentation.
func WithSegmentOptions(o segment.Options) Option {
	return func(e *Engine) {
		e.segOpts = o
	}
}

// WithFuzzy enables fuzzy syllable variants.
func WithFuzzy(x *fuzzy.Expander) Option {
	return func(e *Engine) {
		e.fuzzy.Store(x)
	}
}

// WithClock replaces time.Now, for selection timeouts.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}
