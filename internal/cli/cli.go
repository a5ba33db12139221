package cli

import (
	"github.com/bastiangx/pinyinserve/internal/logger"
	"github.com/bastiangx/pinyinserve/pkg/config"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// CLI encapsulates the command-line interface with its dependencies.
type CLI struct {
	version    string
	debug      bool
	configPath string
	rootCmd    *cobra.Command
}

// New creates a new CLI instance with the given version string.
func New(version string) *CLI {
	c := &CLI{version: version}
	c.setupCommands()
	return c
}

// setupCommands initializes all CLI commands and their configurations.
func (c *CLI) setupCommands() {
	serve := c.newServeCommand()
	c.rootCmd = &cobra.Command{
		Use:           "pinyinserve",
		Short:         "Pinyin prediction engine for input methods",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupGlobal(c.debug)
		},
		// serving is the default, as hosts spawn the binary without arguments
		RunE: serve.RunE,
	}
	c.rootCmd.Flags().AddFlagSet(serve.Flags())

	c.rootCmd.PersistentFlags().BoolVarP(&c.debug, "debug", "d", false, "Enable debug logging on stderr")
	c.rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to config.toml")

	c.rootCmd.AddCommand(serve)
	c.rootCmd.AddCommand(c.newReplCommand())
	c.rootCmd.AddCommand(c.newCompileCommand())
	c.rootCmd.AddCommand(c.newConfigCommand())
	c.rootCmd.AddCommand(c.newVersionCommand())
}

// Run executes the CLI and returns any error.
func (c *CLI) Run() error {
	if err := c.rootCmd.Execute(); err != nil {
		log.Error(err)
		return err
	}
	return nil
}

// SetArgs overrides os.Args, for tests.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// loadConfig resolves the config the same way for every command.
func (c *CLI) loadConfig() (*config.Config, string) {
	cfg, path, err := config.LoadConfigWithPriority(c.configPath)
	if err != nil {
		log.Warnf("Using built-in defaults: %v", err)
		return config.DefaultConfig(), ""
	}
	return cfg, path
}
