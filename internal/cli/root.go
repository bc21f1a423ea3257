package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yairfalse/perfio/internal/config"
	"github.com/yairfalse/perfio/internal/counter"
	"github.com/yairfalse/perfio/internal/counter/perf"
	"github.com/yairfalse/perfio/internal/iogroup"
	"github.com/yairfalse/perfio/internal/papi"
)

// app carries the state shared by every subcommand
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config

	logger     *zap.Logger
	newLibrary func(sysfsRoot string) counter.Library
	registry   *iogroup.Registry
	registered bool

	out io.Writer
}

// Option customizes the root command
type Option func(*app)

// WithLibrary replaces the perf_event library, mostly for tests
func WithLibrary(newLibrary func(sysfsRoot string) counter.Library) Option {
	return func(a *app) { a.newLibrary = newLibrary }
}

// WithRegistry sets the plugin registry (default: iogroup.Default)
func WithRegistry(reg *iogroup.Registry) Option {
	return func(a *app) { a.registry = reg }
}

// WithLogger skips building a logger from --log-level
func WithLogger(logger *zap.Logger) Option {
	return func(a *app) { a.logger = logger }
}

// WithOutput redirects command output (default: stdout)
func WithOutput(w io.Writer) Option {
	return func(a *app) { a.out = w }
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the perfio command tree
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		v: config.New(),
		newLibrary: func(sysfsRoot string) counter.Library {
			return perf.New(sysfsRoot)
		},
		registry: iogroup.Default,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "perfio",
		Short: "Per-core hardware performance counters",
		Long: `perfio counts hardware events on every core and serves them through a
push / read batch / sample signal interface.

Events come from GEOPM_PAPI_EVENTS (whitespace separated), the config file or
--events, for example:

  GEOPM_PAPI_EVENTS="cycles instructions" perfio sample`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}
	rootCmd.SetOut(a.out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	flags.String("log-level", config.DefaultConfig().LogLevel, "log level: debug, info, warn, error")
	flags.String("events", "", "whitespace separated events, overrides "+config.EventsEnv)
	flags.String("sysfs-root", config.DefaultConfig().SysfsRoot, "sysfs mount point for topology discovery")

	// Bind flags to viper
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("events", flags.Lookup("events"))
	_ = a.v.BindPFlag("sysfs_root", flags.Lookup("sysfs-root"))

	rootCmd.AddCommand(
		a.signalsCmd(),
		a.readCmd(),
		a.sampleCmd(),
		a.serveCmd(),
		a.pluginsCmd(),
		a.eventsCmd(),
		versionCmd(a),
	)
	return rootCmd
}

func (a *app) initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger == nil {
		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		a.logger = logger
	}
	if a.cfgFile != "" {
		a.logger.Debug("Using config file", zap.String("path", a.cfgFile))
	}
	return nil
}

// register adds the builtin plugins to the registry once. Factories only
// run on Create.
func (a *app) register() {
	if a.registered {
		return
	}
	iogroup.RegisterBuiltins(a.registry, a.logger,
		papi.RegisterWith(a.newLibrary(a.cfg.SysfsRoot),
			papi.WithEvents(a.cfg.Events),
			papi.WithLogger(a.logger)))
	a.registered = true
}

// openGroup creates the configured plugin
func (a *app) openGroup() (iogroup.IOGroup, func(), error) {
	a.register()

	group, err := a.registry.Create(a.cfg.Plugin)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if c, ok := group.(iogroup.Closer); ok {
			if err := c.Close(); err != nil {
				a.logger.Warn("Failed to close IOGroup", zap.Error(err))
			}
		}
	}
	return group, closeFn, nil
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}
