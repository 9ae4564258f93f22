package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/config"
	"github.com/dl-alexandre/rcache/internal/logging"
	"github.com/dl-alexandre/rcache/internal/metrics"
	"github.com/dl-alexandre/rcache/internal/store"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/dl-alexandre/rcache/internal/utils"
	"github.com/dl-alexandre/rcache/pkg/version"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// annotation marking commands that run without loading configuration
const skipConfig = "rcache/skip-config"

const (
	logFileMaxSize = 10 << 20
	logFileBackups = 5
)

// App is one invocation of rcache: parsed flags, configuration, logger and
// the lazily opened backend and state store.
type App struct {
	flags  types.GlobalFlags
	legacy legacyFlags
	cfg    *config.Config
	logger logging.Logger
	debug  *logging.DebugTransport
	cancel context.CancelFunc
	runID  string

	stdout io.Writer
	stderr io.Writer

	metrics  *metrics.Recorder
	recorded bool
	db       *store.DB

	// newBackend and openStore are replaced in tests
	newBackend func(ctx context.Context) (backend.Backend, error)
	openStore  func() (*store.DB, error)
}

// legacyFlags are the root-level flags of the single-command interface
type legacyFlags struct {
	directory   string
	check       string
	pool        string
	replication int
	show        bool
}

func NewApp(stdout, stderr io.Writer) *App {
	a := &App{
		stdout:  stdout,
		stderr:  stderr,
		logger:  logging.NewNoOpLogger(),
		metrics: metrics.NewRecorder(),
		runID:   uuid.New().String(),
	}
	a.newBackend = a.configuredBackend
	a.openStore = a.configuredStore
	return a
}

// Command builds the command tree bound to a
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "rcache",
		Short: "Submit and audit HDFS centralized cache directives",
		Long: `rcache caches every file under an HDFS directory in a cache pool, one
directive per file, and checks that the directives of a pool still match
the files they were created for.

Single-command usage:
  rcache -d <dir> -p <pool> [-r <replication>] [-v]
  rcache -c <dir> -p <pool> [--show]`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runLegacy,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.Config, "config", "", "Path to configuration file (TOML, or JSON by extension)")
	pf.StringVar(&a.flags.Profile, "profile", "default", "Credential profile for the WebHDFS backend")
	pf.StringVar(&a.flags.Backend, "backend", "", "Backend to use (cacheadmin, webhdfs, local)")
	pf.StringVar((*string)(&a.flags.OutputFormat), "output", "", "Output format (text, json, table)")
	pf.BoolVar(&a.flags.JSON, "json", false, "Output in JSON format (alias for --output json)")
	pf.BoolVarP(&a.flags.Quiet, "quiet", "q", false, "Suppress log output")
	pf.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "Verbosely list files processed")
	pf.BoolVar(&a.flags.Debug, "debug", false, "Enable debug logging, including HTTP requests")
	pf.StringVar(&a.flags.LogFile, "log-file", "", "Write JSON logs to this file")
	pf.BoolVar(&a.flags.DryRun, "dry-run", false, "Show what would be done without making changes")

	f := root.Flags()
	f.StringVarP(&a.legacy.directory, "directory", "d", "", "Root path which would be cached")
	f.StringVarP(&a.legacy.check, "check", "c", "", "Check whether the directives under this path are fully cached")
	f.StringVarP(&a.legacy.pool, "pool", "p", "", "Cache pool name")
	f.IntVarP(&a.legacy.replication, "replication", "r", 0, "Cache replication (default from config, 1)")
	f.BoolVar(&a.legacy.show, "show", false, "Also print fully cached directives")
	root.MarkFlagsMutuallyExclusive("directory", "check")

	root.AddCommand(
		a.newSubmitCmd(),
		a.newAuditCmd(),
		a.newPoolsCmd(),
		a.newDirectivesCmd(),
		a.newHistoryCmd(),
		a.newAuthCmd(),
		a.newConfigCmd(),
		a.newVersionCmd(),
	)
	return root
}

// Execute runs rcache with the process arguments and returns the exit code
func Execute() int {
	return NewApp(os.Stdout, os.Stderr).Run(context.Background(), os.Args[1:])
}

// Run executes args and returns the process exit code
func (a *App) Run(ctx context.Context, args []string) int {
	cmd := a.Command()
	if args == nil {
		// cobra reads os.Args for a nil slice
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(ctx)
	a.close()
	if err == nil {
		return utils.ExitSuccess
	}

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	// flag parsing and argument validation errors from cobra
	fmt.Fprintf(a.stderr, "Error: %v\nRun 'rcache --help' for usage.\n", err)
	return utils.ExitInvalidArgument
}

func (a *App) setup(cmd *cobra.Command, args []string) error {
	if a.flags.JSON {
		a.flags.OutputFormat = types.OutputFormatJSON
	}

	if cmd.Annotations[skipConfig] != "" {
		a.cfg = config.DefaultConfig()
	} else {
		cfg, err := config.Load(a.flags.Config)
		if err != nil {
			return a.configError(err)
		}
		a.cfg = cfg
	}

	if a.flags.Backend != "" {
		a.cfg.Backend = a.flags.Backend
		if err := a.cfg.Validate(); err != nil {
			return a.configError(err)
		}
	}
	if a.flags.OutputFormat == "" {
		a.flags.OutputFormat = a.cfg.OutputFormat
	}
	if !a.flags.OutputFormat.Valid() {
		err := fmt.Errorf("invalid output format: %s", a.flags.OutputFormat)
		return a.fail(a.output(), "rcache", utils.WrapAppError(
			utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build(), err))
	}

	logFile := a.flags.LogFile
	if logFile == "" {
		logFile = a.cfg.LogFile
	}
	logConfig := logging.LogConfig{
		Level:           consoleLevel(a.cfg.LogLevel, a.flags.Verbose),
		OutputFile:      logFile,
		MaxFileSize:     logFileMaxSize,
		MaxBackups:      logFileBackups,
		EnableConsole:   !a.flags.Quiet,
		EnableDebug:     a.flags.Debug,
		RedactSensitive: true,
		EnableColor:     isTerminal(a.stderr),
		EnableTimestamp: true,
	}
	if a.flags.OutputFormat == types.OutputFormatJSON && !a.flags.Debug {
		logConfig.EnableConsole = false
	}

	logger, transport, err := logging.NewDebugLoggerWithTransport(logConfig)
	if err != nil {
		return a.fail(a.output(), "rcache", utils.WrapAppError(
			utils.NewCLIError(utils.ErrCodeInvalidConfig, fmt.Sprintf("failed to initialize logger: %v", err)).Build(), err))
	}
	a.logger = logger
	a.debug = transport

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.GetCommandTimeout())
	a.cancel = cancel
	cmd.SetContext(logging.ContextWithTraceID(ctx, a.runID))
	return nil
}

func (a *App) configError(err error) error {
	return a.fail(a.output(), "rcache", utils.WrapAppError(
		utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build(), err))
}

// runLegacy dispatches the root flags: -d/-p submits, -c/-p audits
func (a *App) runLegacy(cmd *cobra.Command, args []string) error {
	l := a.legacy
	switch {
	case l.directory != "" && l.pool != "":
		return a.runSubmit(cmd, submitParams{root: l.directory, pool: l.pool, replication: l.replication})
	case l.check != "" && l.pool != "":
		return a.runAudit(cmd, auditParams{root: l.check, pool: l.pool, show: l.show})
	}

	msg := "Missing parameters."
	if cmd.Flags().NFlag() == 0 {
		msg = "Must give parameters!"
	}
	fmt.Fprintln(a.stderr, msg)
	_ = cmd.Usage()
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, msg).Build())
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version number",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.output()
			if out.format == types.OutputFormatText {
				fmt.Fprintln(a.stdout, version.Get().String())
				return nil
			}
			return out.WriteSuccess("version", version.Get())
		},
	}
}

// close releases everything setup and the commands opened
func (a *App) close() {
	if a.cfg != nil && a.cfg.MetricsTextfile != "" && a.recorded {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
			a.logger.Warn("Writing metrics textfile failed",
				logging.F("path", a.cfg.MetricsTextfile),
				logging.F("error", err.Error()),
			)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Closing state database failed", logging.F("error", err.Error()))
		}
		a.db = nil
	}
	if a.cancel != nil {
		a.cancel()
	}
	_ = a.logger.Close()
}

// consoleLevel maps the config log level onto the logger. "normal" keeps
// the console to warnings so command output stays readable; --verbose
// lowers it to INFO.
func consoleLevel(name string, verbose bool) logging.LogLevel {
	level, err := logging.ParseLevel(name)
	if err != nil || name == "" || strings.EqualFold(name, "normal") {
		level = logging.WARN
	}
	if verbose && level > logging.INFO {
		level = logging.INFO
	}
	return level
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
