package graphpack

import "fmt"

// Version of the graphpack library
const Version = "1.0.0"

// Build information (set by ldflags during build)
var (
	GitCommit string
	BuildDate string
)

// VersionInfo returns formatted version information
func VersionInfo() string {
	if GitCommit == "" {
		return fmt.Sprintf("graphpack v%s (archive format %s)", Version, FormatVersion)
	}
	return fmt.Sprintf("graphpack v%s (archive format %s, commit: %s, built: %s)", Version, FormatVersion, GitCommit, BuildDate)
}
