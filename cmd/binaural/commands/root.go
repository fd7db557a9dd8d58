package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RenatoCabral2022/binaural-studio/internal/config"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	cfgFile  string
	endpoint string
	timeout  time.Duration
	verbose  bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "binaural",
		Short: "Music dimensional processor CLI",
		Long: `binaural uploads an audio file to the dimensional processing service and
saves the original and immersive mixes it returns.

Configuration comes from the same environment variables as the web server
(PROCESS_URL, PROCESS_TIMEOUT, BINAURAL_CONFIG). Flags win over both.

Examples:
  # Process a song at 8D and write the results to ./out
  binaural process song.mp3 --dimensionality 8 --out out

  # Point at a local service and print JSON
  binaural --endpoint http://localhost:5000/api/process process song.mp3 --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "YAML config file (env is ignored when set)")
	root.PersistentFlags().StringVar(&opts.endpoint, "endpoint", "", "processing service URL (default from config)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "request timeout, 0 waits forever (default from config)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging to stderr")

	root.AddCommand(newProcessCmd(opts))
	return root
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig resolves the config file or env, then applies flag overrides.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.cfgFile != "" {
		cfg, err = config.LoadFile(o.cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("endpoint") {
		cfg.ProcessURL = o.endpoint
	}
	if cmd.Flags().Changed("timeout") {
		cfg.ProcessTimeout = o.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (o *globalOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
