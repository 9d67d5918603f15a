package pm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBinaryResolution is the sentinel wrapped by BinaryResolutionError.
	ErrBinaryResolution = errors.New("cannot resolve package manager binary")

	// ErrTransientNetwork marks a failure caused by a temporary DNS lookup
	// error in the child. Such failures are retried once.
	ErrTransientNetwork = errors.New("transient network failure")
)

// transientMarker is what npm and yarn print when getaddrinfo asks to try again.
const transientMarker = "EAI_AGAIN"

// BinaryResolutionError is returned when the pinned package's metadata
// cannot be found or parsed.
type BinaryResolutionError struct {
	Err     error
	Package string
	Root    string
}

func (e *BinaryResolutionError) Error() string {
	return fmt.Sprintf("resolve %s from %s: %v", e.Package, e.Root, e.Err)
}

func (e *BinaryResolutionError) Unwrap() error { return e.Err }

func (e *BinaryResolutionError) Is(target error) bool { return target == ErrBinaryResolution }

// ExitError is returned when the child exits with a non-zero status.
type ExitError struct {
	// Err is the underlying *exec.ExitError.
	Err       error
	Bin       string
	Args      []string
	Code      int
	Transient bool
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s %s exited with code %d", e.Bin, strings.Join(e.Args, " "), e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Is reports a transient failure as ErrTransientNetwork.
func (e *ExitError) Is(target error) bool {
	return target == ErrTransientNetwork && e.Transient
}

// IsTransientNetwork reports whether err is worth one more attempt with
// reduced network concurrency.
func IsTransientNetwork(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}

// classify reports whether child output carries the transient DNS marker.
func classify(stdout, stderr string) bool {
	return strings.Contains(stderr, transientMarker) || strings.Contains(stdout, transientMarker)
}
