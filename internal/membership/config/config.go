// Package config holds the membership protocol's compile-time tunables as
// an explicit, loadable value rather than global constants, so tests and
// deployments can vary them. Mirrors the "missing file -> defaults" shape
// of a YAML-backed context file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gossipmesh/internal/membership/addrcodec"
)

// Config holds the tunables from spec §6.
type Config struct {
	// TFail is the number of ticks between self-heartbeat broadcasts.
	TFail int64 `yaml:"tfail"`
	// TRemove is the grace period (ticks) after last-heard before eviction.
	// Must be greater than TFail for cluster stability.
	TRemove int64 `yaml:"tremove"`
	// Introducer is the well-known bootstrap address every joiner contacts
	// first.
	Introducer addrcodec.Address `yaml:"-"`
}

// Default returns the reference tunables: TFAIL=5, TREMOVE=20, introducer
// (id=1, port=0).
func Default() Config {
	return Config{TFail: 5, TRemove: 20, Introducer: addrcodec.Introducer}
}

// Validate reports whether c satisfies the stability constraint TREMOVE >
// TFAIL and that both are non-negative.
func (c Config) Validate() error {
	if c.TFail < 0 {
		return fmt.Errorf("config: tfail must be >= 0, got %d", c.TFail)
	}
	if c.TRemove <= c.TFail {
		return fmt.Errorf("config: tremove (%d) must be greater than tfail (%d)", c.TRemove, c.TFail)
	}
	return nil
}

// yamlShape is the on-disk representation: Introducer is split into id/port
// since Address has no natural YAML scalar form.
type yamlShape struct {
	TFail           int64  `yaml:"tfail"`
	TRemove         int64  `yaml:"tremove"`
	IntroducerID    uint32 `yaml:"introducer_id"`
	IntroducerPort  uint16 `yaml:"introducer_port"`
}

// Load reads tunables from a YAML file at path. A missing file yields the
// reference defaults, not an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var y yamlShape
	def := Default()
	y.TFail = def.TFail
	y.TRemove = def.TRemove
	y.IntroducerID = def.Introducer.ID()
	y.IntroducerPort = def.Introducer.Port()

	if err := yaml.Unmarshal(data, &y); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Config{
		TFail:      y.TFail,
		TRemove:    y.TRemove,
		Introducer: addrcodec.New(y.IntroducerID, y.IntroducerPort),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes c to path as YAML.
func Save(path string, c Config) error {
	y := yamlShape{
		TFail:          c.TFail,
		TRemove:        c.TRemove,
		IntroducerID:   c.Introducer.ID(),
		IntroducerPort: c.Introducer.Port(),
	}
	data, err := yaml.Marshal(y)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
