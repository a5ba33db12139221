package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bastiangx/pinyinserve/internal/utils"
	"github.com/bastiangx/pinyinserve/pkg/config"
	"github.com/bastiangx/pinyinserve/pkg/dictionary"
	"github.com/bastiangx/pinyinserve/pkg/engine"
	"github.com/bastiangx/pinyinserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const gh = "https://github.com/bastiangx/pinyinserve"

func (c *CLI) newServeCommand() *cobra.Command {
	var dicts []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions as MessagePack over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(dicts)
		},
	}
	cmd.Flags().StringSliceVar(&dicts, "dict", nil, "Extra dictionary files to load")
	return cmd
}

func (c *CLI) runServe(dicts []string) error {
	cfg, configPath := c.loadConfig()

	srv := server.NewServer(os.Stdin, os.Stdout, cfg.Server.MaxPreedit)
	rt, err := buildRuntime(cfg, srv.Deliver, dicts)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer rt.stop()

	srv.AddStats("lexicon", rt.index.Stats)
	srv.AddStats("context", rt.engine.Context().Stats)
	if rt.loader != nil {
		srv.AddStats("loader", func() map[string]int {
			st := rt.loader.Stats()
			loading := 0
			if st.IsLoading {
				loading = 1
			}
			return map[string]int{
				"files":   st.Files,
				"loaded":  st.LoadedFiles,
				"failed":  st.FailedFiles,
				"records": st.Records,
				"loading": loading,
			}
		})
	}

	if cfg.Server.WatchConfig && configPath != "" {
		watcher := config.NewWatcher(configPath, cfg)
		watcher.OnChange(func(next *config.Config) {
			applyConfig(rt.engine, next)
			log.Debugf("Engine options reloaded from %s", configPath)
		})
		if err := watcher.Start(); err != nil {
			log.Warnf("Config watching disabled: %v", err)
		} else {
			defer watcher.Close()
			go func() {
				for {
					select {
					case err := <-watcher.Errors():
						log.Warnf("Config reload: %v", err)
					case <-watcher.Done():
						return
					}
				}
			}()
		}
	}

	sigHandler(rt)
	showStartupInfo(c.version, configPath, rt.index.Len())

	return srv.Serve(rt.engine)
}

// applyConfig pushes the reloadable parts of cfg into a running engine: the
// [engine] options, the [segment] bounds and the [fuzzy] pairs. The lexicon,
// the context model size, tone significance and the dictionaries are built
// once and need a restart.
func applyConfig(e *engine.Engine, cfg *config.Config) {
	e.SetOptions(cfg.EngineOptions())
	e.SetSegmentOptions(cfg.SegmentOptions())

	expander, err := cfg.FuzzyExpander(e.LanguageFeature())
	if err != nil {
		log.Warnf("Keeping previous fuzzy pairs: %v", err)
		return
	}
	e.SetFuzzy(expander)
}

// sigHandler stops the engine on interrupt and exits normally.
func sigHandler(rt *runtime) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-ch
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		rt.stop()
		os.Exit(0)
	}()
}

// showStartupInfo logs basic info about the init process on stderr.
func showStartupInfo(version, configPath string, entries int) {
	if configPath == "" {
		configPath = "(built-in defaults)"
	}
	log.Debug("pinyinserve ready",
		"version", version,
		"pid", os.Getpid(),
		"config", configPath,
		"entries", utils.FormatWithCommas(int64(entries)))
}

func (c *CLI) newReplCommand() *cobra.Command {
	var (
		limit    int
		noScores bool
		dicts    []string
	)
	cmd := &cobra.Command{
		Use:     "cli",
		Aliases: []string{"repl"},
		Short:   "Try predictions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := c.loadConfig()
			if !cmd.Flags().Changed("limit") {
				limit = cfg.CLI.DefaultLimit
			}
			showScores := cfg.CLI.ShowScores && !noScores

			handler := NewInputHandler(cmd.InOrStdin(), cmd.OutOrStdout(), limit, showScores)
			rt, err := buildRuntime(cfg, handler.Deliver, dicts)
			if err != nil {
				return err
			}
			defer rt.stop()
			return handler.Start(rt.engine)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Number of candidates to print")
	cmd.Flags().BoolVar(&noScores, "no-scores", false, "Hide candidate scores")
	cmd.Flags().StringSliceVar(&dicts, "dict", nil, "Extra dictionary files to load")
	return cmd
}

func (c *CLI) newCompileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <input> <output>",
		Short: "Convert a dictionary between the text and binary formats",
		Long: "Reads a dictionary in either format and writes it out. The output\n" +
			"format follows the output extension: .txt and .dict are text,\n" +
			"anything else is binary.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := compileDictionary(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s records to %s\n", utils.FormatWithCommas(int64(n)), args[1])
			return nil
		},
	}
}

// compileDictionary converts in to out and returns the record count.
func compileDictionary(in, out string) (int, error) {
	records, err := dictionary.LoadFile(in)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("%s: no records", in)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return 0, err
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, err
	}
	switch strings.ToLower(filepath.Ext(out)) {
	case ".txt", ".dict":
		err = dictionary.WriteText(f, records)
	default:
		err = dictionary.WriteBinary(f, records)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", out, err)
	}
	return len(records), nil
}

func (c *CLI) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or rebuild the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetActiveConfigPath(c.configPath))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Rewrite the default config file with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.RebuildConfigFile()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %s\n", path)
			return nil
		},
	})
	return cmd
}

func (c *CLI) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show current version",
		Run: func(cmd *cobra.Command, args []string) {
			logger := log.NewWithOptions(cmd.OutOrStdout(), log.Options{
				ReportCaller:    false,
				ReportTimestamp: false,
			})

			styles := log.DefaultStyles()
			styles.Values["version"] = lipgloss.NewStyle().Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
			styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
			logger.SetStyles(styles)

			logger.Print("[ PinyinServe ] Pinyin predictions for input methods")
			logger.Print("", "version", c.version)
			logger.Print("Github Repo", "gh", gh)
		},
	}
}
