package common

import (
	"fmt"

	"cachesweep/internal/domain/safety"
)

func RequireConfirmationOrDryRun(opts GlobalOptions, dryRun bool, action string) error {
	if dryRun || opts.Yes {
		return nil
	}
	return fmt.Errorf("confirmation required for %s: use --yes or drop --apply", action)
}

// ValidateTrashPath checks a target directory before its contents are
// trashed. allowPaths may re-admit locations under blocked system roots.
func ValidateTrashPath(path string, allowPaths []string) error {
	return safety.ValidatePath(path, nil, allowPaths)
}
