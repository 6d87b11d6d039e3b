package kinegraph

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viperFromYAML(t *testing.T, text string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(text)))
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, errs := LoadConfig(viper.New())
	assert.Empty(t, errs)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	v := viperFromYAML(t, `
engine:
  displaylength: 500
  smoothingradius: 8
  diffmode: simple
  noise: 0.2
  synthetic: Linear
  tickperiod: 5ms
  acceleration: false
other:
  ignored: true
`)
	cfg, errs := LoadConfig(v)
	assert.Empty(t, errs)
	assert.Equal(t, 500, cfg.DisplayLength)
	assert.Equal(t, 8, cfg.SmoothingRadius)
	assert.Equal(t, DiffSimple, cfg.Mode())
	assert.Equal(t, 0.2, cfg.Noise)
	assert.Equal(t, SignalLinear, cfg.Synthetic)
	assert.Equal(t, 5*time.Millisecond, cfg.TickPeriod)
	assert.False(t, cfg.Acceleration)
}

func TestLoadConfigBadValues(t *testing.T) {
	v := viperFromYAML(t, `
engine:
  smoothingradius: abc
  filterkernel: gaussian
  displaylength: 1
  bogus: 3
  velocityprescale: 4
`)
	cfg, errs := LoadConfig(v)
	assert.Len(t, errs, 4)
	keys := map[string]bool{}
	for _, err := range errs {
		var ce *ConfigError
		require.True(t, errors.As(err, &ce), "%v", err)
		keys[ce.Key] = true
	}
	assert.True(t, keys["smoothingradius"])
	assert.True(t, keys["filterkernel"])
	assert.True(t, keys["displaylength"])
	assert.True(t, keys["bogus"])

	// Rejected values fall back to their defaults; good ones still apply.
	assert.Equal(t, DefaultSmoothingRadius, cfg.SmoothingRadius)
	assert.Equal(t, KernelTriangle, cfg.Kernel())
	assert.Equal(t, DefaultDisplayLength, cfg.DisplayLength)
	assert.Equal(t, 4.0, cfg.VelocityPrescale)
}

func TestConfigSettingsRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingRadius = 3
	cfg.TickPeriod = 7 * time.Millisecond
	v := viper.New()
	v.Set(configSection, cfg.Settings())
	got, errs := LoadConfig(v)
	assert.Empty(t, errs)
	assert.Equal(t, cfg, got)
}
