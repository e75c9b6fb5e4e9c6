// Package config loads the daemon configuration.
//
// Values are resolved in three layers: built-in defaults, then the YAML
// file, then DOORBOT_* environment variables. The result is checked against
// an embedded CUE schema before use.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/doorbot/internal/access"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DOORBOT_"

// Config is the daemon configuration.
type Config struct {
	Database   string        `yaml:"database" env:"DATABASE"`
	Log        LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Capture    string        `yaml:"capture" env:"CAPTURE"`
	Control    ControlConfig `yaml:"control" envPrefix:"CONTROL_"`
	Auth       SerialConfig  `yaml:"auth" envPrefix:"AUTH_"`
	Lock       SerialConfig  `yaml:"lock" envPrefix:"LOCK_"`
	Timeouts   Timeouts      `yaml:"timeouts" envPrefix:"TIMEOUT_"`
	Keypad     Keypad        `yaml:"keypad" envPrefix:"KEYPAD_"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

// LogConfig selects the log destination and level.
// An empty File logs to stderr.
type LogConfig struct {
	File  string `yaml:"file" env:"FILE"`
	Level string `yaml:"level" env:"LEVEL"`
}

// ControlConfig configures the administrative control channel.
// An empty Listen disables it.
type ControlConfig struct {
	Listen string `yaml:"listen" env:"LISTEN"`
}

// SerialConfig names one serial link.
type SerialConfig struct {
	Device string `yaml:"device" env:"DEVICE"`
	Baud   int    `yaml:"baud" env:"BAUD"`
}

// Timeouts are the per-state budgets.
type Timeouts struct {
	PIN    time.Duration `yaml:"pin" env:"PIN"`
	Open   time.Duration `yaml:"open" env:"OPEN"`
	Relock time.Duration `yaml:"relock" env:"RELOCK"`
}

// Keypad is the key layout. Keys are single characters.
type Keypad struct {
	Accept       string `yaml:"accept" env:"ACCEPT"`
	Clear        string `yaml:"clear" env:"CLEAR"`
	Override     string `yaml:"override" env:"OVERRIDE"`
	ChangeCode   string `yaml:"change_code" env:"CHANGE_CODE"`
	MinPINLength int    `yaml:"min_pin_length" env:"MIN_PIN_LENGTH"`
	MaxPINLength int    `yaml:"max_pin_length" env:"MAX_PIN_LENGTH"`
}

// Default returns the configuration of a stock installation.
func Default() Config {
	p := access.DefaultPolicy()
	return Config{
		Database: "db/user.db",
		Log:      LogConfig{Level: "info"},
		Control:  ControlConfig{Listen: "[::1]:4242"},
		Auth:     SerialConfig{Device: "/dev/ttyAUTH", Baud: 9600},
		Lock:     SerialConfig{Device: "/dev/ttyLOCK", Baud: 9600},
		Timeouts: Timeouts{
			PIN:    p.PINTimeout,
			Open:   p.UnlockTimeout,
			Relock: p.RelockTimeout,
		},
		Keypad: Keypad{
			Accept:       string(p.AcceptKey),
			Clear:        string(p.ClearKey),
			Override:     string(p.OverrideKey),
			ChangeCode:   p.ChangeCode,
			MinPINLength: p.MinPINLength,
			MaxPINLength: p.MaxPINLength,
		},
		BcryptCost: 10,
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := decodeYAML(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result, without
// consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decodeYAML(bytes.NewReader(data), &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// Validate checks cfg against the embedded CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	doc := ctx.Encode(c.document())
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// document is the shape checked by schema.cue.
func (c Config) document() map[string]any {
	serial := func(s SerialConfig) map[string]any {
		return map[string]any{"device": s.Device, "baud": s.Baud}
	}
	return map[string]any{
		"database": c.Database,
		"log": map[string]any{
			"file":  c.Log.File,
			"level": strings.ToLower(c.Log.Level),
		},
		"capture": c.Capture,
		"control": map[string]any{"listen": c.Control.Listen},
		"auth":    serial(c.Auth),
		"lock":    serial(c.Lock),
		"timeouts": map[string]any{
			"pin":    int64(c.Timeouts.PIN),
			"open":   int64(c.Timeouts.Open),
			"relock": int64(c.Timeouts.Relock),
		},
		"keypad": map[string]any{
			"accept":         c.Keypad.Accept,
			"clear":          c.Keypad.Clear,
			"override":       c.Keypad.Override,
			"change_code":    c.Keypad.ChangeCode,
			"min_pin_length": c.Keypad.MinPINLength,
			"max_pin_length": c.Keypad.MaxPINLength,
		},
		"bcrypt_cost": c.BcryptCost,
	}
}

// Policy converts the timing and keypad settings for the machine.
func (c Config) Policy() access.Policy {
	return access.Policy{
		PINTimeout:    c.Timeouts.PIN,
		UnlockTimeout: c.Timeouts.Open,
		RelockTimeout: c.Timeouts.Relock,
		AcceptKey:     firstRune(c.Keypad.Accept),
		ClearKey:      firstRune(c.Keypad.Clear),
		OverrideKey:   firstRune(c.Keypad.Override),
		ChangeCode:    c.Keypad.ChangeCode,
		MinPINLength:  c.Keypad.MinPINLength,
		MaxPINLength:  c.Keypad.MaxPINLength,
	}
}

// LogLevel returns the configured slog level. Unknown names map to info.
func (c Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0
	}
	return r
}
