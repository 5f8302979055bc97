package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/fidlwire/capture"
	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/handle"
	"github.com/wippyai/fidlwire/wire"
	"github.com/wippyai/fidlwire/witschema"
)

type Config struct {
	Decode  DecodeConfig  `yaml:"decode"`
	Schema  SchemaConfig  `yaml:"schema"`
	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
}

type DecodeConfig struct {
	// MaxDepth limits out-of-line nesting. At most 32.
	MaxDepth uint32 `yaml:"max_depth"`

	// MaxUnknownHandles bounds the unknown-handle holding area. At most 64.
	MaxUnknownHandles uint32 `yaml:"max_unknown_handles"`

	// UnknownHandles is "close" or "skip".
	UnknownHandles string `yaml:"unknown_handles"`
}

type SchemaConfig struct {
	// MaxStringSize bounds WIT strings; 0 is unbounded.
	MaxStringSize uint32 `yaml:"max_string_size"`

	// MaxListCount bounds WIT lists; 0 is unbounded.
	MaxListCount uint32 `yaml:"max_list_count"`

	// HandleType is the object type required for own and borrow handles.
	HandleType string `yaml:"handle_type"`
}

type CaptureConfig struct {
	// Compression used when writing captures.
	Compression string `yaml:"compression"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			MaxDepth:          coding.MaxDepth,
			MaxUnknownHandles: coding.MaxMsgHandles,
			UnknownHandles:    wire.UnknownHandlesClose.String(),
		},
		Schema: SchemaConfig{
			HandleType: handle.ObjTypeNone.String(),
		},
		Capture: CaptureConfig{
			Compression: capture.CompressionNone.String(),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read config")
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	policies = []string{"close", "skip"}
	levels   = []string{"debug", "info", "warn", "error"}
	formats  = []string{"console", "json"}
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Decode.MaxDepth == 0 || c.Decode.MaxDepth > coding.MaxDepth {
		errs = append(errs, fmt.Errorf("decode.max_depth must be between 1 and %d", coding.MaxDepth))
	}
	if c.Decode.MaxUnknownHandles == 0 || c.Decode.MaxUnknownHandles > coding.MaxMsgHandles {
		errs = append(errs, fmt.Errorf("decode.max_unknown_handles must be between 1 and %d", coding.MaxMsgHandles))
	}
	if !slices.Contains(policies, c.Decode.UnknownHandles) {
		errs = append(errs, fmt.Errorf("decode.unknown_handles must be one of: %v", policies))
	}
	if _, ok := handle.ParseObjType(c.Schema.HandleType); !ok {
		errs = append(errs, fmt.Errorf("schema.handle_type %q is not an object type", c.Schema.HandleType))
	}
	if _, err := capture.ParseCompression(c.Capture.Compression); err != nil {
		errs = append(errs, fmt.Errorf("capture.compression: %w", err))
	}
	if !slices.Contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	if !slices.Contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, stderrors.Join(errs...), "invalid config")
	}
	return nil
}

// DecoderConfig converts the decode section. table may be nil.
func (c *Config) DecoderConfig(table handle.Table) *wire.Config {
	policy := wire.UnknownHandlesClose
	if c.Decode.UnknownHandles == wire.UnknownHandlesSkip.String() {
		policy = wire.UnknownHandlesSkip
	}
	return &wire.Config{
		Table:             table,
		MaxDepth:          c.Decode.MaxDepth,
		MaxUnknownHandles: c.Decode.MaxUnknownHandles,
		UnknownHandles:    policy,
	}
}

// SchemaOptions converts the schema section.
func (c *Config) SchemaOptions() *witschema.Options {
	typ, _ := handle.ParseObjType(c.Schema.HandleType)
	return &witschema.Options{
		MaxStringSize: c.Schema.MaxStringSize,
		MaxListCount:  c.Schema.MaxListCount,
		HandleType:    typ,
	}
}

// Compression returns the capture compression.
func (c *Config) Compression() capture.Compression {
	comp, _ := capture.ParseCompression(c.Capture.Compression)
	return comp
}

// NewLogger builds the zap logger described by the log section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}

	zc := zap.NewProductionConfig()
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "build logger")
	}
	return logger, nil
}
