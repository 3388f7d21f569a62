package digen

import (
	"errors"
	"fmt"
)

// ErrNoAssets means the provider answered but neither response shape
// yielded usable asset references. Never retried.
var ErrNoAssets = errors.New("digen: no asset id or urls in response")

// ExhaustedError reports that every retry attempt failed. LastStatus and
// LastBody are diagnostics for the admin only; they must not reach
// regular users.
type ExhaustedError struct {
	Attempts   int
	LastStatus int
	LastBody   string
	Err        error
}

func (e *ExhaustedError) Error() string {
	if e.LastStatus != 0 {
		return fmt.Sprintf("digen: %d attempts exhausted, last status %d", e.Attempts, e.LastStatus)
	}
	return fmt.Sprintf("digen: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
