package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gokrazy/fbfilter/internal/adjust"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"FBFILTER_DEVICE", "FBFILTER_LOG_FILE", "FBFILTER_DEV", "FBFILTER_PRESET"} {
		t.Setenv(key, "")
	}
	got := FromEnv()
	if want := (Config{Device: "/dev/fb0"}); got != want {
		t.Errorf("FromEnv() = %+v, want %+v", got, want)
	}
}

func TestLoad(t *testing.T) {
	for _, key := range []string{"FBFILTER_DEVICE", "FBFILTER_LOG_FILE", "FBFILTER_DEV", "FBFILTER_PRESET"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	// An explicitly set variable wins over the .env file.
	t.Setenv("FBFILTER_LOG_FILE", "/tmp/explicit.log")

	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	content := "FBFILTER_DEVICE=/dev/fb1\nFBFILTER_DEV=yes\nFBFILTER_PRESET=night.yaml\nFBFILTER_LOG_FILE=/tmp/ignored.log\n"
	if err := os.WriteFile(env, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(filepath.Join(dir, "missing.env"), env)
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		Device:      "/dev/fb1",
		LogFile:     "/tmp/explicit.log",
		Development: true,
		Preset:      "night.yaml",
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestParsePreset(t *testing.T) {
	for _, tt := range []struct {
		name    string
		in      string
		want    adjust.Adjustments
		wantErr bool
	}{
		{name: "empty", in: "", want: adjust.None()},
		{name: "full", in: "brightness: 0.5\nnoise: 40\ninvert: true\n", want: adjust.Adjustments{Brightness: 0.5, Noise: 40, Invert: true}},
		{name: "partial", in: "invert: true\n", want: adjust.Adjustments{Brightness: 1, Invert: true}},
		{name: "black", in: "brightness: 0\n", want: adjust.Adjustments{Brightness: 0}},
		{name: "unknown key", in: "contrast: 2\n", wantErr: true},
		{name: "negative noise", in: "noise: -3\n", wantErr: true},
		{name: "bad type", in: "noise: lots\n", wantErr: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePreset([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePreset(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePreset(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.yaml")
	if err := os.WriteFile(path, []byte("brightness: 1.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadPreset(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Brightness != 1.5 {
		t.Errorf("Brightness = %v, want 1.5", got.Brightness)
	}
	if _, err := LoadPreset(path + ".missing"); err == nil {
		t.Error("LoadPreset of a missing file succeeded")
	}
}
