package neurogc

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the tunables the collector reads once at init() time.
// Defaults match the behavior described for a fresh collector with no
// configuration file present.
type Config struct {
	// ScanInterval is how long the background thread sleeps between
	// scan cycles.
	ScanInterval time.Duration

	// InitialSegmentSize is the minimum size of the first segment in
	// each arena.
	InitialSegmentSize int

	// SegmentGrowthIncrement is loaded and stored, but the allocator
	// does not read it: a segment appended on overflow is sized to the
	// request, with a 2 MiB minimum.
	SegmentGrowthIncrement int

	// PropertyMapSlack is loaded and stored, but object creation does
	// not read it: CreateObject always uses the slack its caller passes.
	PropertyMapSlack uint32

	// GapMinRunLength is the minimum contiguous run of empty table
	// slots FindGaps will record as reusable.
	GapMinRunLength int

	// DeadlockDetection toggles go-deadlock's lock-order checking. Off
	// by default since it adds per-lock bookkeeping overhead; useful
	// during development and in tests.
	DeadlockDetection bool
}

// DefaultConfig returns the configuration a bare init() uses when no
// file is loaded.
func DefaultConfig() Config {
	return Config{
		ScanInterval:           3 * time.Second,
		InitialSegmentSize:     minSegmentSize,
		SegmentGrowthIncrement: minSegmentSize,
		PropertyMapSlack:       10,
		GapMinRunLength:        1,
		DeadlockDetection:      false,
	}
}

// configFile mirrors Config's shape for TOML decoding; ScanInterval is
// expressed in milliseconds on disk since toml has no native duration
// type.
type configFile struct {
	ScanIntervalMS         int64  `toml:"scan_interval_ms"`
	InitialSegmentSize     int    `toml:"initial_segment_size"`
	SegmentGrowthIncrement int    `toml:"segment_growth_increment"`
	PropertyMapSlack       uint32 `toml:"property_map_slack"`
	GapMinRunLength        int    `toml:"gap_min_run_length"`
	DeadlockDetection      bool   `toml:"deadlock_detection"`
}

// LoadConfig reads a TOML configuration file at path, overlaying it on
// DefaultConfig. A missing file is not an error; it simply yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, WrapError(KindInvalidArgument, "reading collector config", err)
	}

	var f configFile
	f.ScanIntervalMS = cfg.ScanInterval.Milliseconds()
	f.InitialSegmentSize = cfg.InitialSegmentSize
	f.SegmentGrowthIncrement = cfg.SegmentGrowthIncrement
	f.PropertyMapSlack = cfg.PropertyMapSlack
	f.GapMinRunLength = cfg.GapMinRunLength
	f.DeadlockDetection = cfg.DeadlockDetection

	if err := toml.Unmarshal(data, &f); err != nil {
		return cfg, WrapError(KindInvalidArgument, "parsing collector config", err)
	}

	cfg.ScanInterval = time.Duration(f.ScanIntervalMS) * time.Millisecond
	cfg.InitialSegmentSize = f.InitialSegmentSize
	cfg.SegmentGrowthIncrement = f.SegmentGrowthIncrement
	cfg.PropertyMapSlack = f.PropertyMapSlack
	cfg.GapMinRunLength = f.GapMinRunLength
	cfg.DeadlockDetection = f.DeadlockDetection
	return cfg, nil
}
