// Package engine is the prediction adapter between a host input-method
// framework and the pinyin core.
//
// A host drives it through the Plugin contract: Predict is asynchronous and
// answers through the registered SuggestionHandler, WordCandidateSelected feeds
// the user's choice back into the lexicon and the context model.
//
// Requests are served by one background worker. Every Predict bumps a
// generation counter and a result is handed to the handler only while its
// generation is still the latest, so a host never sees suggestions for a
// preedit it has already moved past.
//
//	idx := lexicon.New(lexicon.DefaultOptions())
//	idx.Load(records)
//	eng := engine.New(lang.NewChinese(), idx, rank.NewScorer(rank.NewContextModel(0)),
//		engine.WithHandler(func(r engine.Result) { show(r.Suggestions) }))
//	defer eng.Stop()
//	eng.Predict("我", "qu")
package engine

import (
	"github.com/bastiangx/pinyinserve/pkg/lang"
	"github.com/bastiangx/pinyinserve/pkg/rank"
)

// Plugin is the contract a host input-method framework calls.
type Plugin interface {
	// Predict asks for suggestions for preedit typed after surroundingLeft.
	Predict(surroundingLeft, preedit string)
	// WordCandidateSelected reports the word the user picked.
	WordCandidateSelected(word string)
	// LanguageFeature exposes the capability object of the active language.
	LanguageFeature() lang.Features

	// Spell checking is not provided by this engine. These exist for hosts
	// that call them unconditionally.
	SpellCheckerSuggest(word string, limit int)
	AddToSpellCheckerUserWordList(word string)
	SetLanguage(languageID string) bool
}

// SuggestionHandler receives delivered results on the worker goroutine.
// It must not block for long; calling back into the engine is allowed.
type SuggestionHandler func(Result)

// Request is one prediction request.
type Request struct {
	SurroundingLeft string
	Preedit         string
	// Tag is echoed back in the Result. The engine never reads it.
	Tag string
}

// Result is one delivered suggestion list.
type Result struct {
	// Word is the preedit the suggestions answer.
	Word        string
	Suggestions []string
	Candidates  []rank.Candidate
	// Unmatched is the preedit suffix no syllable could cover.
	Unmatched string
	Tag       string
	// Seq is the request generation.
	Seq uint64
}

var _ Plugin = (*Engine)(nil)
