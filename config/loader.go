package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/wippyai/typecore/errors"
	"go.uber.org/zap"
)

// EnvPrefix prefixes environment overrides: XTYPE_LOG_LEVEL sets log.level
const EnvPrefix = "XTYPE_"

// DefaultFiles are looked up in the working directory when no file is given
var DefaultFiles = []string{"xtype.yaml", "xtype.yml"}

// flagKeys maps flag names to configuration keys; other flags are ignored
var flagKeys = map[string]string{
	"scope":      "scope",
	"variance":   "variance",
	"structural": "structural",
	"access":     "access",
	"log-level":  "log.level",
	"log-format": "log.format",
	"workers":    "batch.workers",
}

// Load reads configuration. Precedence, highest first: flags that were set,
// environment, the config file, defaults. An empty path searches DefaultFiles;
// an explicit path must exist.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	def := Default()
	if err := k.Load(confmap.Provider(map[string]any{
		"variance":      def.Variance,
		"structural":    def.Structural,
		"access":        def.Access,
		"log.level":     def.Log.Level,
		"log.format":    def.Log.Format,
		"batch.workers": def.Batch.Workers,
	}, "."), nil); err != nil {
		return nil, wrap(err, "load defaults")
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, wrap(err, "read config file "+path)
		}
	}

	// XTYPE_LOG_LEVEL -> log.level, XTYPE_BATCH_WORKERS -> batch.workers
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil); err != nil {
		return nil, wrap(err, "load environment")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, wrap(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, wrap(err, "decode config")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	Logger().Debug("config loaded", zap.String("file", path))
	return &cfg, nil
}

func findFile() string {
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func wrap(err error, detail string) error {
	return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, detail)
}
