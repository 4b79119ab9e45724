package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// projectMarkers stop the upward config search: the directory holding one
// of them is the project root.
var projectMarkers = []string{"flake.lock", ".git"}

var (
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// envKeys maps NIX_TESTS_* suffixes to config keys.
var envKeys = map[string]string{
	"CONCURRENCY":    "runner.concurrency",
	"TIMEOUT":        "runner.timeout",
	"FORMAT":         "report.format",
	"HIDE_SUCCEEDED": "report.hide_succeeded",
	"HIDE_FAILED":    "report.hide_failed",
	"HIDE_ERRORED":   "report.hide_errored",
	"COLOR":          "report.color",
	"EVALUATOR":      "evaluator.binary",
	"LIB_PATH":       "evaluator.lib_path",
	"METRICS_FILE":   "metrics.file",
	"LOG_LEVEL":      "log_level",
	"OUTPUT":         "output",
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"concurrency":    "runner.concurrency",
	"timeout":        "runner.timeout",
	"format":         "report.format",
	"hide-succeeded": "report.hide_succeeded",
	"hide-failed":    "report.hide_failed",
	"hide-errored":   "report.hide_errored",
	"color":          "report.color",
	"evaluator":      "evaluator.binary",
	"lib":            "evaluator.lib_path",
	"metrics-file":   "metrics.file",
	"log-level":      "log_level",
	"verbose":        "verbose",
	"output":         "output",
}

// Binding names the environment variable and flag that set a config key.
// Either may be empty.
type Binding struct {
	Key  string
	Env  string
	Flag string
}

// Bindings lists every key settable from the environment or the command
// line, sorted by key.
func Bindings() []Binding {
	byKey := make(map[string]*Binding)
	get := func(key string) *Binding {
		if b, ok := byKey[key]; ok {
			return b
		}
		b := &Binding{Key: key}
		byKey[key] = b
		return b
	}
	for suffix, key := range envKeys {
		get(key).Env = EnvPrefix + suffix
	}
	for flag, key := range flagKeys {
		get(key).Flag = flag
	}

	out := make([]Binding, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b Binding) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// configExistsIn returns the config file in dir, if any.
func configExistsIn(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func isProjectBoundary(dir string) bool {
	for _, marker := range projectMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// FindConfigFile searches upward from startDir for a config file. The search
// stops at the first directory containing flake.lock or .git, at the
// filesystem root, or after maxUpwardSearchLevels directories. It returns
// the config file (empty if none) and the project root.
func FindConfigFile(startDir string) (path, root string) {
	dir := startDir
	for range maxUpwardSearchLevels {
		if found := configExistsIn(dir); found != "" {
			return found, dir
		}
		if isProjectBoundary(dir) {
			return "", dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return "", startDir
}

// ResetConfig clears the loaded config state. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return Load(cfgFile, cwd, flags)
}

// Load is LoadConfig with an explicit starting directory for the config search.
func Load(cfgFile, startDir string, flags *pflag.FlagSet) (*Config, error) {
	ResetConfig()

	// 1. Defaults
	defaults, err := loadLayer(confmap.Provider(defaultsMap(), "."), nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	projectRoot := startDir
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			cfgFile = abs
		}
		projectRoot = filepath.Dir(cfgFile)
	} else {
		cfgFile, projectRoot = FindConfigFile(startDir)
	}

	var fileLayer Layer
	if cfgFile != "" {
		fileLayer, err = loadLayer(file.Provider(cfgFile), yaml.Parser(), true)
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		resolveLayerPaths(&fileLayer, projectRoot)
		configFileUsed = cfgFile
	}

	// 3. Environment variables (NIX_TESTS_ prefix)
	// Transform: NIX_TESTS_LIB_PATH -> evaluator.lib_path
	envLayer, err := loadLayer(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKeys[strings.TrimPrefix(s, EnvPrefix)]
	}), nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	var flagLayer Layer
	if flags != nil {
		flagLayer, err = loadLayer(posflag.ProviderWithFlag(flags, ".", nil, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil, false)
		if err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Merge(defaults, fileLayer, envLayer, flagLayer)
	cfg.ProjectRoot = projectRoot

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg
	return &cfg, nil
}

func defaultsMap() map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		"runner.concurrency": d.Runner.Concurrency,
		"runner.timeout":     int64(d.Runner.Timeout),
		"report.format":      d.Report.Format,
		"report.color":       d.Report.Color,
		"evaluator.binary":   d.Evaluator.Binary,
		"log_level":          d.LogLevel,
		"verbose":            d.Verbose,
		"output":             d.Output,
	}
}

// loadLayer reads one provider into a Layer. strict rejects unknown keys.
func loadLayer(p koanf.Provider, parser koanf.Parser, strict bool) (Layer, error) {
	k := koanf.New(".")
	if err := k.Load(p, parser); err != nil {
		return Layer{}, err
	}

	var layer Layer
	if err := k.UnmarshalWithConf("", &layer, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       millisHook,
			Result:           &layer,
			WeaklyTypedInput: true,
			ErrorUnused:      strict,
		},
	}); err != nil {
		return Layer{}, fmt.Errorf("unable to decode config: %w", err)
	}
	return layer, nil
}

var millisType = reflect.TypeOf(Millis(0))

// millisHook decodes Millis from an integer string or a Go duration.
func millisHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != millisType || from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" {
		return int64(0), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: expected milliseconds or a duration like 30s", s)
	}
	return d.Milliseconds(), nil
}

// resolveLayerPaths anchors relative paths from the config file at the
// project root.
func resolveLayerPaths(l *Layer, root string) {
	if p := l.Evaluator.LibPath; p != nil {
		*p = resolvePathRelativeTo(*p, root)
	}
	if p := l.Metrics.File; p != nil {
		*p = resolvePathRelativeTo(*p, root)
	}
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
