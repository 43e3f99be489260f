package config

// Config holds app configuration for a single CLI invocation.
type Config struct {
	// Game selects the archive/table dialect (dscs, dscs-console, dsts, thl).
	Game string `mapstructure:"game"`

	SourcePath string `mapstructure:"source"`
	TargetPath string `mapstructure:"target"`

	// CompressMode is one of "none", "normal", "advanced" for pack-archive.
	CompressMode string `mapstructure:"compress"`

	// SingleFile restricts unpack-archive to one named entry.
	SingleFile string `mapstructure:"file"`

	// SchemaDir points at the structure.json-rooted schema tree used to
	// resolve table row layouts.
	SchemaDir string `mapstructure:"schema_dir"`

	// Workers bounds extraction/packing concurrency; 0 means unbounded
	// (one goroutine per job).
	Workers int `mapstructure:"workers"`

	DryRun       bool   `mapstructure:"dry_run"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}
