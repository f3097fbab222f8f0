package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config declares a logger.
type Config struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" json:"format" env:"LOG_FORMAT" env-default:"text"`
	// Outputs defaults to a single console output.
	Outputs    []OutputConfig `yaml:"outputs" json:"outputs"`
	ShowCaller bool           `yaml:"showCaller" json:"showCaller" env:"LOG_SHOW_CALLER"`
	// RedactKeys replaces the values of these field keys.
	RedactKeys []string `yaml:"redactKeys" json:"redactKeys"`
	// Sampling: log the first SampleInitial repeats of a message, then every SampleThereafter-th.
	SampleInitial    int `yaml:"sampleInitial" json:"sampleInitial"`
	SampleThereafter int `yaml:"sampleThereafter" json:"sampleThereafter"`
}

// OutputConfig selects an output: console, file (with Path) or null.
type OutputConfig struct {
	Type string `yaml:"type" json:"type"`
	Path string `yaml:"path" json:"path"`
}

// ParseLevel parses debug|info|warn|warning|error|fatal (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{ShowCaller: cfg.ShowCaller}
	case "json":
		formatter = &JSONFormatter{ShowCaller: cfg.ShowCaller}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	opts := []LoggerOption{WithLevel(level), WithFormatter(formatter)}
	for _, oc := range cfg.Outputs {
		switch strings.ToLower(oc.Type) {
		case "", "console":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case "file":
			fo, err := NewFileOutput(oc.Path)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithOutput(fo))
		case "null":
			opts = append(opts, WithOutput(NullOutput{}))
		default:
			return nil, fmt.Errorf("log: unknown output %q", oc.Type)
		}
	}
	l := newBaseLogger(opts...)
	h := newBridgeHandler(l.core).
		withRedactions(cfg.RedactKeys).
		withSampler(cfg.SampleInitial, cfg.SampleThereafter)
	l.slogLogger = slog.New(h)
	return l, nil
}

// NewNop returns a logger that discards everything. Handy in tests.
func NewNop() Logger {
	return NewLogger(WithLevel(FatalLevel+1), WithOutput(NullOutput{}))
}
