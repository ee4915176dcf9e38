package version

// Version is the release of the argo-dca binaries.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-dca/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// SchemaVersion is the layout of the tables this build reads and writes.
// Bump the minor version when a column is added and the major version when
// existing data must be migrated.
const SchemaVersion = "1.1.0"

// GetVersion returns the current version of the binaries.
func GetVersion() string {
	return Version
}
