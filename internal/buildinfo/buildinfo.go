// Package buildinfo stores version metadata injected at build time.
package buildinfo

var (
	// Version is the semantic version or "dev" for local builds.
	Version = "dev"
	// Commit is the git commit hash the binary was built from.
	Commit = "none"
	// BuildDate records when the binary was built.
	BuildDate = "unknown"
)
