package cli

import (
	"fmt"

	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/config"
	"github.com/bastiangx/pinyinserve/pkg/dictionary"
	"github.com/bastiangx/pinyinserve/pkg/engine"
	"github.com/bastiangx/pinyinserve/pkg/lexicon"
	"github.com/bastiangx/pinyinserve/pkg/rank"
	"github.com/charmbracelet/log"
)

// runtime is everything a command needs to predict.
type runtime struct {
	engine *engine.Engine
	index  *lexicon.Index
	loader *dictionary.Loader
}

func (r *runtime) stop() {
	if r.loader != nil {
		r.loader.Stop()
	}
	r.engine.Stop()
}

// buildRuntime loads the dictionaries named by cfg and starts an engine
// delivering to handler. extra files are loaded after the configured ones.
func buildRuntime(cfg *config.Config, handler engine.SuggestionHandler, extra []string) (*runtime, error) {
	features := cfg.Features()
	index := lexicon.New(cfg.LexiconOptions())

	if cfg.Dict.UseBase {
		records, err := dictionary.Base()
		if err != nil {
			return nil, fmt.Errorf("base dictionary: %w", err)
		}
		index.Load(records)
	}

	var files []string
	resolver := utils.NewPathResolver()
	for _, name := range append(append([]string{}, cfg.Dict.Files...), extra...) {
		path, err := resolver.ResolveFile(name)
		if err != nil {
			log.Warnf("Dictionary %s not found in %v", name, resolver.SearchPaths())
			continue
		}
		files = append(files, path)
	}

	rt := &runtime{index: index}
	if len(files) > 0 {
		rt.loader = dictionary.NewLoader(index, files)
		rt.loader.SetMaxRetries(cfg.Dict.MaxRetries)
		if err := rt.loader.Start(); err != nil {
			rt.loader.Stop()
			return nil, err
		}
	}
	if index.Len() == 0 {
		if rt.loader != nil {
			rt.loader.Stop()
		}
		return nil, fmt.Errorf("no dictionary entries loaded")
	}

	expander, err := cfg.FuzzyExpander(features)
	if err != nil {
		log.Warnf("Fuzzy pinyin disabled: %v", err)
		expander = nil
	}

	opts := []engine.Option{
		engine.WithHandler(handler),
		engine.WithOptions(cfg.EngineOptions()),
		engine.WithSegmentOptions(cfg.SegmentOptions()),
	}
	if expander != nil {
		opts = append(opts, engine.WithFuzzy(expander))
	}
	scorer := rank.NewScorer(rank.NewContextModel(cfg.Rank.MaxContexts))
	rt.engine = engine.New(features, index, scorer, opts...)

	log.Debugf("Engine ready: %d lexicon entries", index.Len())
	return rt, nil
}
