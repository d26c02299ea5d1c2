package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagCutoff    = flag.Float64("cutoff", 0, "Vertex merge cutoff distance")
	flagFraction  = flag.Float64("fraction", 0, "Simplify to this fraction of merged vertices (0 = merge only)")
	flagFuse      = flag.Bool("fuse", false, "Fuse all shapes into one mesh")
	flagStrategy  = flag.String("strategy", "", "Simplifier: qem or cluster")
	flagNeighbors = flag.String("neighbors", "", "Merge grid search: positive or full")
	flagCharset   = flag.String("charset", "", "Input charset (auto detects UTF-8 or Windows-1252)")
	flagAddr      = flag.String("addr", "", "Worker listen address")
	flagLogFile   = flag.String("log-file", "", "Also write logs to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
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
	if *flagCutoff > 0 {
		cfg.Simplify.MergeCutoff = *flagCutoff
	}
	if *flagFraction > 0 {
		f := *flagFraction
		cfg.Simplify.ReductionFraction = &f
	}
	if *flagFuse {
		cfg.Simplify.FuseShapes = true
	}
	if *flagStrategy != "" {
		cfg.Simplify.Strategy = *flagStrategy
	}
	if *flagNeighbors != "" {
		cfg.Simplify.NeighborMode = *flagNeighbors
	}
	if *flagCharset != "" {
		cfg.Input.Charset = *flagCharset
	}
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
