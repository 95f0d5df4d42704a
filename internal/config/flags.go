package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagExtent  = flag.Float64("extent", 0, "Largest model axis after normalization")
	flagMaxSize = flag.Int("max-size", 0, "Refuse model files larger than this many MB")
	flagOut     = flag.String("out", "", "Directory for exported textures")
	flagLogFile = flag.String("log-file", "", "Write logs to this file as well")
	flagNoCache = flag.Bool("no-cache", false, "Disable the decoded model cache")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments, the subcommand first.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagExtent > 0 {
		cfg.Decoder.TargetExtent = float32(*flagExtent)
	}
	if *flagMaxSize > 0 {
		cfg.Decoder.MaxFileSizeMB = *flagMaxSize
	}
	if *flagOut != "" {
		cfg.Export.TextureDir = *flagOut
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagNoCache {
		cfg.Cache.MaxEntries = 0
	}
}
