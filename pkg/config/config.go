/*
Package config manages the TOML config of pinyinserve.

Every section maps onto the options of one package, so a config file is
turned into runtime options with EngineOptions, SegmentOptions, LexiconOptions
and FuzzyExpander. A config file that fails to decode as a whole is salvaged
key by key; whatever cannot be read keeps its default.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/engine"
	"github.com/bastiangx/pinyinserve/pkg/fuzzy"
	"github.com/bastiangx/pinyinserve/pkg/lang"
	"github.com/bastiangx/pinyinserve/pkg/lexicon"
	"github.com/bastiangx/pinyinserve/pkg/rank"
	"github.com/bastiangx/pinyinserve/pkg/segment"
	"github.com/charmbracelet/log"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Config holds the entire config structure
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Segment SegmentConfig `toml:"segment"`
	Lexicon LexiconConfig `toml:"lexicon"`
	Rank    RankConfig    `toml:"rank"`
	Fuzzy   FuzzyConfig   `toml:"fuzzy"`
	Server  ServerConfig  `toml:"server"`
	Dict    DictConfig    `toml:"dict"`
	CLI     CliConfig     `toml:"cli"`
}

// EngineConfig holds prediction and feedback options.
type EngineConfig struct {
	MaxSuggestions   int      `toml:"max_suggestions"`
	SelectionTimeout Duration `toml:"selection_timeout"`
	ReinforceDelta   int      `toml:"reinforce_delta"`
	ContextBoost     float64  `toml:"context_boost"`
	PredictLonger    bool     `toml:"predict_longer"`
	PrefixPenalty    float64  `toml:"prefix_penalty"`
}

// SegmentConfig bounds segmentation.
type SegmentConfig struct {
	MaxSegmentations int  `toml:"max_segmentations"`
	MaxSteps         int  `toml:"max_steps"`
	AllowPartial     bool `toml:"allow_partial"`
}

// LexiconConfig holds lookup options.
type LexiconConfig struct {
	MaxPrefixResults int  `toml:"max_prefix_results"`
	ToneSignificant  bool `toml:"tone_significant"`
}

// RankConfig holds the scoring weights and the context model bounds.
type RankConfig struct {
	BaseWeight       float64 `toml:"base_weight"`
	ContextWeight    float64 `toml:"context_weight"`
	MaxContextTokens int     `toml:"max_context_tokens"`
	MaxContexts      int     `toml:"max_contexts"`
}

// FuzzyConfig enables fuzzy pinyin.
type FuzzyConfig struct {
	Enabled     bool     `toml:"enabled"`
	Pairs       []string `toml:"pairs"`
	MaxVariants int      `toml:"max_variants"`
	Penalty     float64  `toml:"penalty"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxPreedit  int  `toml:"max_preedit"`
	WatchConfig bool `toml:"watch_config"`
}

// DictConfig lists the dictionaries to load.
type DictConfig struct {
	Files      []string `toml:"files"`
	UseBase    bool     `toml:"use_base"`
	MaxRetries int      `toml:"max_retries"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int  `toml:"default_limit"`
	ShowScores   bool `toml:"show_scores"`
}

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// GetConfigDir returns the config directory with fallback priority:
// 1. the platform config dir (~/.config/pinyinserve)
// 2. the executable dir
func GetConfigDir() (string, error) {
	primaryPath := utils.NewPathResolver().ConfigDir()
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, FileName), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/pinyinserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	eng := engine.DefaultOptions()
	seg := segment.DefaultOptions()
	lex := lexicon.DefaultOptions()
	return &Config{
		Engine: EngineConfig{
			MaxSuggestions:   eng.MaxSuggestions,
			SelectionTimeout: Duration{eng.SelectionTimeout},
			ReinforceDelta:   int(eng.ReinforceDelta),
			ContextBoost:     eng.ContextBoost,
			PredictLonger:    eng.PredictLonger,
			PrefixPenalty:    eng.PrefixPenalty,
		},
		Segment: SegmentConfig{
			MaxSegmentations: seg.MaxSegmentations,
			MaxSteps:         seg.MaxSteps,
			AllowPartial:     seg.AllowPartial,
		},
		Lexicon: LexiconConfig{
			MaxPrefixResults: lex.MaxPrefixResults,
			ToneSignificant:  lex.ToneSignificant,
		},
		Rank: RankConfig{
			BaseWeight:       eng.Weights.Base,
			ContextWeight:    eng.Weights.Context,
			MaxContextTokens: eng.MaxContextTokens,
			MaxContexts:      rank.DefaultMaxContexts,
		},
		Fuzzy: FuzzyConfig{
			Enabled:     false,
			Pairs:       append([]string(nil), fuzzy.DefaultPairs...),
			MaxVariants: 4,
			Penalty:     eng.FuzzyPenalty,
		},
		Server: ServerConfig{
			MaxPreedit:  64,
			WatchConfig: true,
		},
		Dict: DictConfig{
			Files:      []string{},
			UseBase:    true,
			MaxRetries: 3,
		},
		CLI: CliConfig{
			DefaultLimit: 9,
			ShowScores:   true,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	if !utils.FileExists(configPath) {
		return nil, fmt.Errorf("config %s: %w", configPath, os.ErrNotExist)
	}
	config := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse salvages the keys that decode from a broken config file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(section, &config.Engine)
	}
	if section, ok := utils.ExtractSection(tempConfig, "segment"); ok {
		extractSegmentConfig(section, &config.Segment)
	}
	if section, ok := utils.ExtractSection(tempConfig, "lexicon"); ok {
		extractLexiconConfig(section, &config.Lexicon)
	}
	if section, ok := utils.ExtractSection(tempConfig, "rank"); ok {
		extractRankConfig(section, &config.Rank)
	}
	if section, ok := utils.ExtractSection(tempConfig, "fuzzy"); ok {
		extractFuzzyConfig(section, &config.Fuzzy)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractEngineConfig(data map[string]any, c *EngineConfig) {
	if val, ok := utils.ExtractInt(data, "max_suggestions"); ok {
		c.MaxSuggestions = val
	}
	if val, ok := utils.ExtractDuration(data, "selection_timeout"); ok {
		c.SelectionTimeout = Duration{val}
	}
	if val, ok := utils.ExtractInt(data, "reinforce_delta"); ok {
		c.ReinforceDelta = val
	}
	if val, ok := utils.ExtractFloat(data, "context_boost"); ok {
		c.ContextBoost = val
	}
	if val, ok := utils.ExtractBool(data, "predict_longer"); ok {
		c.PredictLonger = val
	}
	if val, ok := utils.ExtractFloat(data, "prefix_penalty"); ok {
		c.PrefixPenalty = val
	}
}

func extractSegmentConfig(data map[string]any, c *SegmentConfig) {
	if val, ok := utils.ExtractInt(data, "max_segmentations"); ok {
		c.MaxSegmentations = val
	}
	if val, ok := utils.ExtractInt(data, "max_steps"); ok {
		c.MaxSteps = val
	}
	if val, ok := utils.ExtractBool(data, "allow_partial"); ok {
		c.AllowPartial = val
	}
}

func extractLexiconConfig(data map[string]any, c *LexiconConfig) {
	if val, ok := utils.ExtractInt(data, "max_prefix_results"); ok {
		c.MaxPrefixResults = val
	}
	if val, ok := utils.ExtractBool(data, "tone_significant"); ok {
		c.ToneSignificant = val
	}
}

func extractRankConfig(data map[string]any, c *RankConfig) {
	if val, ok := utils.ExtractFloat(data, "base_weight"); ok {
		c.BaseWeight = val
	}
	if val, ok := utils.ExtractFloat(data, "context_weight"); ok {
		c.ContextWeight = val
	}
	if val, ok := utils.ExtractInt(data, "max_context_tokens"); ok {
		c.MaxContextTokens = val
	}
	if val, ok := utils.ExtractInt(data, "max_contexts"); ok {
		c.MaxContexts = val
	}
}

func extractFuzzyConfig(data map[string]any, c *FuzzyConfig) {
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		c.Enabled = val
	}
	if val, ok := utils.ExtractStrings(data, "pairs"); ok {
		c.Pairs = val
	}
	if val, ok := utils.ExtractInt(data, "max_variants"); ok {
		c.MaxVariants = val
	}
	if val, ok := utils.ExtractFloat(data, "penalty"); ok {
		c.Penalty = val
	}
}

func extractServerConfig(data map[string]any, c *ServerConfig) {
	if val, ok := utils.ExtractInt(data, "max_preedit"); ok {
		c.MaxPreedit = val
	}
	if val, ok := utils.ExtractBool(data, "watch_config"); ok {
		c.WatchConfig = val
	}
}

func extractDictConfig(data map[string]any, c *DictConfig) {
	if val, ok := utils.ExtractStrings(data, "files"); ok {
		c.Files = val
	}
	if val, ok := utils.ExtractBool(data, "use_base"); ok {
		c.UseBase = val
	}
	if val, ok := utils.ExtractInt(data, "max_retries"); ok {
		c.MaxRetries = val
	}
}

func extractCliConfig(data map[string]any, c *CliConfig) {
	if val, ok := utils.ExtractInt(data, "default_limit"); ok {
		c.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "show_scores"); ok {
		c.ShowScores = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() (string, error) {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return "", err
	}
	return defaultPath, SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// EngineOptions converts the config into runtime engine options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		MaxSuggestions:   c.Engine.MaxSuggestions,
		SelectionTimeout: c.Engine.SelectionTimeout.Duration,
		ReinforceDelta:   int64(c.Engine.ReinforceDelta),
		ContextBoost:     c.Engine.ContextBoost,
		MaxContextTokens: c.Rank.MaxContextTokens,
		Weights: rank.Weights{
			Base:    c.Rank.BaseWeight,
			Context: c.Rank.ContextWeight,
		},
		PredictLonger: c.Engine.PredictLonger,
		PrefixPenalty: c.Engine.PrefixPenalty,
		FuzzyPenalty:  c.Fuzzy.Penalty,
	}
}

// SegmentOptions converts the [segment] section.
func (c *Config) SegmentOptions() segment.Options {
	return segment.Options{
		MaxSegmentations: c.Segment.MaxSegmentations,
		MaxSteps:         c.Segment.MaxSteps,
		AllowPartial:     c.Segment.AllowPartial,
	}
}

// LexiconOptions converts the [lexicon] section.
func (c *Config) LexiconOptions() lexicon.Options {
	return lexicon.Options{
		MaxPrefixResults: c.Lexicon.MaxPrefixResults,
		ToneSignificant:  c.Lexicon.ToneSignificant,
	}
}

// Features builds the language features the config asks for.
func (c *Config) Features() *lang.Chinese {
	return lang.NewChinese(
		lang.WithToneSignificance(c.Lexicon.ToneSignificant),
		lang.WithMaxSuggestions(c.Engine.MaxSuggestions),
	)
}

// FuzzyExpander returns nil when fuzzy pinyin is disabled.
func (c *Config) FuzzyExpander(features lang.Features) (*fuzzy.Expander, error) {
	if !c.Fuzzy.Enabled {
		return nil, nil
	}
	return fuzzy.NewExpander(features, c.Fuzzy.Pairs, c.Fuzzy.MaxVariants)
}
