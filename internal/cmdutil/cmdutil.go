// Package cmdutil holds the configuration and component wiring shared
// by every cobra subcommand: flag parsing, terminal/logger
// construction, and remote-cache client setup.
package cmdutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/pflag"

	"github.com/monotask/mono/internal/client"
	"github.com/monotask/mono/internal/config"
	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/ui"
)

const envLogLevel = "MONO_LOG_LEVEL"

// Helper holds configuration gathered from flags and env vars common to
// every subcommand. It is not used directly by commands; it drives the
// construction of a CmdBase.
type Helper struct {
	// MonoVersion is the version of the running binary.
	MonoVersion string

	forceColor bool
	noColor    bool
	verbosity  int

	rawRepoRoot string

	// UserConfigPath is exposed for override in tests.
	UserConfigPath monopath.AbsoluteSystemPath

	cleanupsMu sync.Mutex
	cleanups   []io.Closer
}

// NewHelper returns a Helper for the root command to populate from
// flags before any subcommand runs.
func NewHelper(monoVersion string) *Helper {
	return &Helper{
		MonoVersion:    monoVersion,
		UserConfigPath: config.DefaultUserConfigPath(),
	}
}

// AddFlags registers the flags common to every subcommand.
func (h *Helper) AddFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&h.forceColor, "color", false, "force color usage in the terminal")
	flags.BoolVar(&h.noColor, "no-color", false, "suppress color usage in the terminal")
	flags.CountVarP(&h.verbosity, "verbosity", "v", "verbosity (repeatable)")
	flags.StringVar(&h.rawRepoRoot, "cwd", "", "the directory in which to run mono")
}

// RegisterCleanup saves a function to run after the command finishes,
// even if it returned an error.
func (h *Helper) RegisterCleanup(cleanup io.Closer) {
	h.cleanupsMu.Lock()
	defer h.cleanupsMu.Unlock()
	h.cleanups = append(h.cleanups, cleanup)
}

// Cleanup runs every registered cleanup handler.
func (h *Helper) Cleanup(flags *pflag.FlagSet) {
	h.cleanupsMu.Lock()
	defer h.cleanupsMu.Unlock()
	var terminal cli.Ui
	for _, cleanup := range h.cleanups {
		if err := cleanup.Close(); err != nil {
			if terminal == nil {
				terminal = h.buildUI(flags)
			}
			terminal.Warn(fmt.Sprintf("failed cleanup: %v", err))
		}
	}
}

func (h *Helper) buildUI(flags *pflag.FlagSet) cli.Ui {
	colorMode := ui.GetColorModeFromEnv()
	if flags.Changed("no-color") && h.noColor {
		colorMode = ui.ColorModeSuppressed
	}
	if flags.Changed("color") && h.forceColor {
		colorMode = ui.ColorModeForced
	}
	factory := &ui.ColoredUIFactory{ColorMode: colorMode, Base: &ui.BasicUIFactory{}}
	return factory.Build(os.Stdin, os.Stdout, os.Stderr)
}

func (h *Helper) buildLogger() (hclog.Logger, error) {
	var level hclog.Level
	switch h.verbosity {
	case 0:
		if v := os.Getenv(envLogLevel); v != "" {
			level = hclog.LevelFromString(v)
			if level == hclog.NoLevel {
				return nil, fmt.Errorf("%s value %q is not a valid log level", envLogLevel, v)
			}
		} else {
			level = hclog.NoLevel
		}
	case 1:
		level = hclog.Info
	case 2:
		level = hclog.Debug
	default:
		level = hclog.Trace
	}

	output := ioutil.Discard
	logColor := hclog.ColorOff
	if level != hclog.NoLevel {
		output = os.Stderr
		logColor = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "mono",
		Level:  level,
		Color:  logColor,
		Output: output,
	}), nil
}

// GetCmdBase resolves flags, env vars, and config files into a CmdBase
// ready for a subcommand to use.
func (h *Helper) GetCmdBase(flags *pflag.FlagSet) (*CmdBase, error) {
	terminal := h.buildUI(flags)

	logger, err := h.buildLogger()
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	repoRoot := monopath.AbsoluteSystemPath(cwd)
	if h.rawRepoRoot != "" {
		repoRoot = monopath.AbsoluteSystemPath(h.rawRepoRoot)
	}

	repoConfig, err := config.ReadRepoConfigFile(config.GetRepoConfigPath(repoRoot))
	if err != nil {
		return nil, err
	}
	userConfig, err := config.ReadUserConfigFile(h.UserConfigPath)
	if err != nil {
		return nil, err
	}

	// repoConfig and userConfig have already absorbed config.EnvAPIURL,
	// config.EnvTeamID, and config.EnvToken, so no further env lookup is
	// needed here.
	remoteConfig := repoConfig.GetRemoteConfig(userConfig.Token())
	remoteConfig.Timeout = 30 * time.Second

	apiClient := client.New(remoteConfig, logger)

	return &CmdBase{
		UI:           terminal,
		Logger:       logger,
		RepoRoot:     repoRoot,
		APIClient:    apiClient,
		RepoConfig:   repoConfig,
		UserConfig:   userConfig,
		RemoteConfig: remoteConfig,
		MonoVersion:  h.MonoVersion,
	}, nil
}

// CmdBase bundles the components common to every subcommand.
type CmdBase struct {
	UI           cli.Ui
	Logger       hclog.Logger
	RepoRoot     monopath.AbsoluteSystemPath
	APIClient    *client.RemoteCacheClient
	RepoConfig   *config.RepoConfig
	UserConfig   *config.UserConfig
	RemoteConfig client.Config
	MonoVersion  string
}

// LogError prints an error to the UI and the logger.
func (b *CmdBase) LogError(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	b.Logger.Error("error", "err", err)
	b.UI.Error(fmt.Sprintf("%s%s", ui.ERROR_PREFIX, color.RedString(" %v", err)))
	return err
}

// LogWarning logs a warning to the UI and the logger.
func (b *CmdBase) LogWarning(prefix string, err error) {
	b.Logger.Warn(prefix, "warning", err)
	if prefix != "" {
		prefix = " " + prefix + ": "
	}
	b.UI.Warn(fmt.Sprintf("%s%s%s", ui.WARNING_PREFIX, prefix, color.YellowString(" %v", err)))
}

// LogInfo logs an informational message to the UI and the logger.
func (b *CmdBase) LogInfo(msg string) {
	b.Logger.Info(msg)
	b.UI.Info(fmt.Sprintf("%s%s", ui.InfoPrefix, color.WhiteString(" %v", msg)))
}
