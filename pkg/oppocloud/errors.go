package oppocloud

import (
	"errors"
	"fmt"
)

// Error kinds produced by the client. Each kind wraps ErrClient, so
// errors.Is(err, ErrClient) matches any failure from this package while
// errors.Is against a specific kind narrows it down.
var (
	// ErrClient is the base kind for unexpected failures.
	ErrClient = errors.New("oppo cloud client error")
	// ErrTimeout means a bounded wait ran out during navigation or login.
	ErrTimeout = fmt.Errorf("%w: timeout", ErrClient)
	// ErrCommunication means the browser or automation connection could
	// not be established or maintained.
	ErrCommunication = fmt.Errorf("%w: communication", ErrClient)
	// ErrAuthentication means the login failed, or a session that looked
	// authenticated turned out not to be.
	ErrAuthentication = fmt.Errorf("%w: authentication", ErrClient)
)

// wrapKind tags err with kind and a "when <context>" diagnostic, unless
// err already carries one of the client's own kinds, which propagate
// unchanged.
func wrapKind(kind error, context string, err error) error {
	if errors.Is(err, ErrClient) {
		return err
	}
	if err == nil {
		return fmt.Errorf("%w: when %s", kind, context)
	}
	return fmt.Errorf("%w: when %s: %w", kind, context, err)
}
