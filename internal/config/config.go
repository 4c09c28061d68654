// Package config reads fbfilter defaults from the environment and
// adjustment presets from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/gokrazy/fbfilter/internal/adjust"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds settings that may come from the environment. Command line
// flags take precedence over all of them.
type Config struct {
	Device      string // FBFILTER_DEVICE
	LogFile     string // FBFILTER_LOG_FILE
	Development bool   // FBFILTER_DEV
	Preset      string // FBFILTER_PRESET
}

// Load reads the given .env files into the process environment (missing
// files are skipped, existing variables are not overridden) and returns the
// resulting Config.
func Load(envFiles ...string) (Config, error) {
	for _, fn := range envFiles {
		if err := godotenv.Load(fn); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("loading %s: %w", fn, err)
		}
	}
	return FromEnv(), nil
}

// FromEnv returns the Config described by the current environment.
func FromEnv() Config {
	return Config{
		Device:      getenv("FBFILTER_DEVICE", "/dev/fb0"),
		LogFile:     os.Getenv("FBFILTER_LOG_FILE"),
		Development: parseBool(os.Getenv("FBFILTER_DEV")),
		Preset:      os.Getenv("FBFILTER_PRESET"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "on":
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// LoadPreset reads adjustments from a YAML file such as
//
//	brightness: 1.2
//	noise: 40
//	invert: true
//
// Unknown keys are an error.
func LoadPreset(path string) (adjust.Adjustments, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return adjust.Adjustments{}, err
	}
	return ParsePreset(b)
}

// ParsePreset decodes a preset document. See LoadPreset. Keys that are
// missing leave the corresponding adjustment off; brightness defaults to 1.
func ParsePreset(b []byte) (adjust.Adjustments, error) {
	adj := adjust.None()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&adj); err != nil {
		if errors.Is(err, io.EOF) {
			// empty document
			return adj, nil
		}
		return adjust.Adjustments{}, fmt.Errorf("parsing preset: %w", err)
	}
	if adj.Noise < 0 {
		return adjust.Adjustments{}, fmt.Errorf("parsing preset: negative noise level %d", adj.Noise)
	}
	return adj, nil
}
