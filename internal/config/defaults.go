package config

// Default configuration values.
const (
	DefaultOutput     = "text"
	DefaultOutputDir  = "flowscope-out"
	DefaultQueriesDir = "queries"
	DefaultMaxDepth   = 0
)
