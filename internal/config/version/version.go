package version

// Package metadata, injected via -ldflags at release build time.
var (
	Version      = "0.1.0"            // Version of the pipeline tool
	Toolname     = "pkg-pipeline-dev" // Name of the tool
	Organization = "unknown"          // Organization that built the tool
	BuildDate    = "unknown"          // Date when the tool was built
	CommitSHA    = "unknown"          // Commit SHA of the tool
)
