package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// configName is the per-project config file looked up next to the board
// when --config is not given.
const configName = "otdrc.yaml"

// Config is the YAML project configuration. Every field is optional;
// absent check toggles keep their defaults and zero minimums leave the
// board file's values alone.
type Config struct {
	// Rules names the clearance rule file, relative to the config file.
	Rules string `yaml:"rules"`

	Severity struct {
		// Ignore lists violation kind names to drop, e.g. "zone_has_empty_net".
		Ignore []string `yaml:"ignore"`
	} `yaml:"severity"`

	Checks struct {
		PadToPad             *bool `yaml:"pad_to_pad"`
		Unconnected          *bool `yaml:"unconnected"`
		Zones                *bool `yaml:"zones"`
		Keepouts             *bool `yaml:"keepouts"`
		RefillZones          *bool `yaml:"refill_zones"`
		ReportAllTrackErrors *bool `yaml:"report_all_track_errors"`
		Footprints           *bool `yaml:"footprints"`
	} `yaml:"checks"`

	// Minimums override the board file's design minimums, in millimeters.
	Minimums struct {
		Clearance     float64 `yaml:"clearance"`
		TrackWidth    float64 `yaml:"track_width"`
		ViaSize       float64 `yaml:"via_size"`
		ThroughDrill  float64 `yaml:"through_drill"`
		ViaAnnulus    float64 `yaml:"via_annulus"`
		MicroViaSize  float64 `yaml:"micro_via_size"`
		MicroViaDrill float64 `yaml:"micro_via_drill"`
		HoleToHole    float64 `yaml:"hole_to_hole"`
	} `yaml:"minimums"`

	// dir is where the config file was found; relative paths in it
	// resolve against this.
	dir string
}

// loadConfig reads the project config. The explicit --config path must
// exist; the implicit lookup next to the board tolerates absence and
// returns an empty config.
func loadConfig(explicit, boardFile string) (*Config, error) {
	path := explicit
	if path == "" {
		path = filepath.Join(filepath.Dir(boardFile), configName)
		if _, err := os.Stat(path); err != nil {
			return &Config{dir: "."}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := &Config{dir: filepath.Dir(path)}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// RulesPath resolves the rule file path against the config location.
// Empty when no rule file is configured.
func (c *Config) RulesPath() string {
	if c.Rules == "" {
		return ""
	}
	if filepath.IsAbs(c.Rules) {
		return c.Rules
	}
	return filepath.Join(c.dir, c.Rules)
}

// Options applies the config's check toggles over the defaults.
func (c *Config) Options() drc.Options {
	opts := drc.DefaultOptions()
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&opts.PadToPad, c.Checks.PadToPad)
	set(&opts.Unconnected, c.Checks.Unconnected)
	set(&opts.Zones, c.Checks.Zones)
	set(&opts.Keepouts, c.Checks.Keepouts)
	set(&opts.RefillZonesBeforeCheck, c.Checks.RefillZones)
	set(&opts.ReportAllTrackErrors, c.Checks.ReportAllTrackErrors)
	set(&opts.TestFootprints, c.Checks.Footprints)
	return opts
}

// ApplyMinimums overrides the board's design minimums with any nonzero
// config values.
func (c *Config) ApplyMinimums(b *board.Board) {
	set := func(dst *int64, mm float64) {
		if mm > 0 {
			*dst = geometry.FromMM(mm)
		}
	}
	set(&b.Settings.MinClearance, c.Minimums.Clearance)
	set(&b.Settings.TrackMinWidth, c.Minimums.TrackWidth)
	set(&b.Settings.ViasMinSize, c.Minimums.ViaSize)
	set(&b.Settings.MinThroughDrill, c.Minimums.ThroughDrill)
	set(&b.Settings.ViasMinAnnulus, c.Minimums.ViaAnnulus)
	set(&b.Settings.MicroViasMinSize, c.Minimums.MicroViaSize)
	set(&b.Settings.MicroViasMinDrill, c.Minimums.MicroViaDrill)
	set(&b.Settings.HoleToHoleMin, c.Minimums.HoleToHole)
}
