package kinegraph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Fixed parameters of the position channel, and defaults for the rest.
const (
	PositionRadius              = 1
	DefaultDisplayLength        = 1000
	DefaultSmoothingRadius      = 20
	DefaultTickPeriod           = 3 * time.Millisecond
	DefaultPositionPrescale     = 1.0
	DefaultVelocityPrescale     = 16.0
	DefaultAccelerationPrescale = 2.0
)

// Names of the synthetic signals (Config.Synthetic). The empty string selects the live pointer.
const (
	SignalSine      = "sine"
	SignalLinear    = "linear"
	SignalQuadratic = "quadratic"
)

// Config enumerates every recognized engine option. The mapstructure tags
// are the keys used in the "engine" section of the config file.
type Config struct {
	DisplayLength        int           `mapstructure:"displaylength"`
	SmoothingRadius      int           `mapstructure:"smoothingradius"`
	FilterKernel         string        `mapstructure:"filterkernel"`
	DiffMode             string        `mapstructure:"diffmode"`
	Noise                float64       `mapstructure:"noise"`
	Synthetic            string        `mapstructure:"synthetic"`
	TickPeriod           time.Duration `mapstructure:"tickperiod"`
	Acceleration         bool          `mapstructure:"acceleration"`
	PositionPrescale     float64       `mapstructure:"positionprescale"`
	VelocityPrescale     float64       `mapstructure:"velocityprescale"`
	AccelerationPrescale float64       `mapstructure:"accelerationprescale"`
	Debug                bool          `mapstructure:"debug"`
	SweepExport          bool          `mapstructure:"sweepexport"`
	ExportPath           string        `mapstructure:"exportpath"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	exportPath := "sweeps"
	if home, err := os.UserHomeDir(); err == nil {
		exportPath = filepath.Join(home, ".kinegraph", "sweeps")
	}
	return Config{
		DisplayLength:        DefaultDisplayLength,
		SmoothingRadius:      DefaultSmoothingRadius,
		FilterKernel:         KernelTriangle.String(),
		DiffMode:             DiffHolo.String(),
		TickPeriod:           DefaultTickPeriod,
		Acceleration:         true,
		PositionPrescale:     DefaultPositionPrescale,
		VelocityPrescale:     DefaultVelocityPrescale,
		AccelerationPrescale: DefaultAccelerationPrescale,
		ExportPath:           exportPath,
	}
}

// ConfigError describes one rejected configuration value. The offending value
// is replaced by its default; the pipeline never aborts because of it.
type ConfigError struct {
	Key   string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s=%v rejected, using default: %v", e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("config %s=%v rejected, using default", e.Key, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Kernel returns the parsed filter kernel. Call Validate first.
func (c Config) Kernel() Kernel {
	k, _ := ParseKernel(c.FilterKernel)
	return k
}

// Mode returns the parsed differentiation mode. Call Validate first.
func (c Config) Mode() DiffMode {
	m, _ := ParseDiffMode(c.DiffMode)
	return m
}

// Validate checks every field, resets each invalid one to its default, and
// returns one error per reset field.
func (c *Config) Validate() []error {
	def := DefaultConfig()
	var errs []error
	reject := func(key string, value any, err error) {
		errs = append(errs, &ConfigError{Key: key, Value: value, Err: err})
	}

	if c.DisplayLength < 2 {
		reject("displaylength", c.DisplayLength, fmt.Errorf("want >= 2"))
		c.DisplayLength = def.DisplayLength
	}
	if c.SmoothingRadius < 0 {
		reject("smoothingradius", c.SmoothingRadius, fmt.Errorf("want >= 0"))
		c.SmoothingRadius = def.SmoothingRadius
	}
	if k, err := ParseKernel(c.FilterKernel); err != nil {
		reject("filterkernel", c.FilterKernel, err)
		c.FilterKernel = def.FilterKernel
	} else {
		c.FilterKernel = k.String()
	}
	if m, err := ParseDiffMode(c.DiffMode); err != nil {
		reject("diffmode", c.DiffMode, err)
		c.DiffMode = def.DiffMode
	} else {
		c.DiffMode = m.String()
	}
	if c.Noise < 0 {
		reject("noise", c.Noise, fmt.Errorf("want >= 0"))
		c.Noise = def.Noise
	}
	switch s := strings.ToLower(strings.TrimSpace(c.Synthetic)); s {
	case "", SignalSine, SignalLinear, SignalQuadratic:
		c.Synthetic = s
	default:
		reject("synthetic", c.Synthetic, fmt.Errorf("want one of \"\", %q, %q, %q", SignalSine, SignalLinear, SignalQuadratic))
		c.Synthetic = def.Synthetic
	}
	if c.TickPeriod <= 0 {
		reject("tickperiod", c.TickPeriod, fmt.Errorf("want > 0"))
		c.TickPeriod = def.TickPeriod
	}
	if c.PositionPrescale == 0 {
		reject("positionprescale", c.PositionPrescale, fmt.Errorf("want nonzero"))
		c.PositionPrescale = def.PositionPrescale
	}
	if c.VelocityPrescale == 0 {
		reject("velocityprescale", c.VelocityPrescale, fmt.Errorf("want nonzero"))
		c.VelocityPrescale = def.VelocityPrescale
	}
	if c.AccelerationPrescale == 0 {
		reject("accelerationprescale", c.AccelerationPrescale, fmt.Errorf("want nonzero"))
		c.AccelerationPrescale = def.AccelerationPrescale
	}
	if c.SweepExport && c.ExportPath == "" {
		reject("exportpath", c.ExportPath, fmt.Errorf("sweep export needs a path"))
		c.ExportPath = def.ExportPath
	}
	return errs
}

// configSection is the viper section holding engine options.
const configSection = "engine"

// configConverters converts and stores each recognized key; the key set is the
// set of recognized options.
var configConverters = map[string]func(c *Config, v any) error{
	"displaylength": func(c *Config, v any) (err error) {
		c.DisplayLength, err = cast.ToIntE(v)
		return
	},
	"smoothingradius": func(c *Config, v any) (err error) {
		c.SmoothingRadius, err = cast.ToIntE(v)
		return
	},
	"filterkernel": func(c *Config, v any) (err error) {
		c.FilterKernel, err = cast.ToStringE(v)
		return
	},
	"diffmode": func(c *Config, v any) (err error) {
		c.DiffMode, err = cast.ToStringE(v)
		return
	},
	"noise": func(c *Config, v any) (err error) {
		c.Noise, err = cast.ToFloat64E(v)
		return
	},
	"synthetic": func(c *Config, v any) (err error) {
		c.Synthetic, err = cast.ToStringE(v)
		return
	},
	"tickperiod": func(c *Config, v any) (err error) {
		c.TickPeriod, err = cast.ToDurationE(v)
		return
	},
	"acceleration": func(c *Config, v any) (err error) {
		c.Acceleration, err = cast.ToBoolE(v)
		return
	},
	"positionprescale": func(c *Config, v any) (err error) {
		c.PositionPrescale, err = cast.ToFloat64E(v)
		return
	},
	"velocityprescale": func(c *Config, v any) (err error) {
		c.VelocityPrescale, err = cast.ToFloat64E(v)
		return
	},
	"accelerationprescale": func(c *Config, v any) (err error) {
		c.AccelerationPrescale, err = cast.ToFloat64E(v)
		return
	},
	"debug": func(c *Config, v any) (err error) {
		c.Debug, err = cast.ToBoolE(v)
		return
	},
	"sweepexport": func(c *Config, v any) (err error) {
		c.SweepExport, err = cast.ToBoolE(v)
		return
	},
	"exportpath": func(c *Config, v any) (err error) {
		c.ExportPath, err = cast.ToStringE(v)
		return
	},
}

// LoadConfig reads the engine section of v. A value that cannot be converted,
// is out of range, or uses an unrecognized key is reported (and returned) as an
// error while the default stays in force.
func LoadConfig(v *viper.Viper) (Config, []error) {
	cfg := DefaultConfig()
	var errs []error
	prefix := configSection + "."
	for _, fullkey := range v.AllKeys() {
		if !strings.HasPrefix(fullkey, prefix) {
			continue
		}
		key := strings.TrimPrefix(fullkey, prefix)
		convert, ok := configConverters[key]
		if !ok {
			errs = append(errs, &ConfigError{Key: key, Value: v.Get(fullkey), Err: fmt.Errorf("unrecognized option")})
			continue
		}
		saved := cfg
		if err := convert(&cfg, v.Get(fullkey)); err != nil {
			cfg = saved
			errs = append(errs, &ConfigError{Key: key, Value: v.Get(fullkey), Err: err})
		}
	}
	errs = append(errs, cfg.Validate()...)
	reportConfigErrors(errs)
	return cfg, errs
}

func reportConfigErrors(errs []error) {
	for _, err := range errs {
		ProblemLogger.Print(err)
	}
}

// Settings returns the configuration keyed the way the config file stores it.
func (c Config) Settings() map[string]any {
	return map[string]any{
		"displaylength":        c.DisplayLength,
		"smoothingradius":      c.SmoothingRadius,
		"filterkernel":         c.FilterKernel,
		"diffmode":             c.DiffMode,
		"noise":                c.Noise,
		"synthetic":            c.Synthetic,
		"tickperiod":           c.TickPeriod.String(),
		"acceleration":         c.Acceleration,
		"positionprescale":     c.PositionPrescale,
		"velocityprescale":     c.VelocityPrescale,
		"accelerationprescale": c.AccelerationPrescale,
		"debug":                c.Debug,
		"sweepexport":          c.SweepExport,
		"exportpath":           c.ExportPath,
	}
}
