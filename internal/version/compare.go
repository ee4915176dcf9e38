package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

// CheckSchemaCompatibility reports whether a database written with schema
// stored can be used by a build expecting schema current.
//
// Compatibility Rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - The stored minor version must not be newer than the current one
//   - Patch versions can differ
//
// Examples:
//   - Current 1.2.0, stored 1.2.3 -> OK
//   - Current 1.3.0, stored 1.2.0 -> OK (older tables gain columns)
//   - Current 1.2.0, stored 1.3.0 -> ERROR (written by a newer build)
//   - Current 2.0.0, stored 1.2.0 -> ERROR (needs a migration)
func CheckSchemaCompatibility(current, stored string) error {
	current = strings.TrimPrefix(current, "v")
	stored = strings.TrimPrefix(stored, "v")

	if current == "main" || stored == "main" {
		return nil
	}

	currentSemver, err := semver.NewVersion(current)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid schema version '%s'", current)
	}

	storedSemver, err := semver.NewVersion(stored)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid stored schema version '%s'", stored)
	}

	if currentSemver.Major() != storedSemver.Major() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "major version mismatch: database schema is %d.x.x but this build reads %d.x.x",
			storedSemver.Major(), currentSemver.Major())
	}

	if storedSemver.Minor() > currentSemver.Minor() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "minor version mismatch: database schema %d.%d.x is newer than %d.%d.x",
			storedSemver.Major(), storedSemver.Minor(),
			currentSemver.Major(), currentSemver.Minor())
	}

	return nil
}

// SchemaOlder reports whether stored is an older release than current.
// Unparsable versions, such as "main", are never older.
func SchemaOlder(current, stored string) bool {
	currentSemver, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return false
	}

	storedSemver, err := semver.NewVersion(strings.TrimPrefix(stored, "v"))
	if err != nil {
		return false
	}

	return storedSemver.LessThan(currentSemver)
}
