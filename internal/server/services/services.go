// Package services contains the server-side business logic: the account
// directory (signup, login, staff provisioning) and the transaction
// lifecycle (creation, review, submission batching).
package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/payportal/internal/common"
)

// storageError passes client-facing repository errors through and marks
// everything else as an internal failure.
func storageError(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrConflict),
		errors.Is(err, common.ErrAlreadyResolved):
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}
