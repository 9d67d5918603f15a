package pm

import (
	"context"
	"fmt"
)

// RetryPolicy re-runs an invocation whose failure is classified as
// retryable, adjusting its arguments between attempts.
type RetryPolicy struct {
	// Retryable decides whether err deserves another attempt.
	Retryable func(err error) bool
	// Adjust returns the arguments for the next attempt, or false when
	// no adjustment is possible and the failure should propagate.
	Adjust func(args []string) ([]string, bool)
	// MaxAttempts includes the first attempt.
	MaxAttempts int
}

// Run calls op with args until it succeeds, fails permanently, or the
// attempts are used up. The last error is returned.
func (p RetryPolicy) Run(ctx context.Context, args []string, op func(args []string) (*Output, error)) (*Output, error) {
	attempts := max(p.MaxAttempts, 1)
	var (
		out *Output
		err error
	)
	for attempt := range attempts {
		if attempt > 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, fmt.Errorf("retry aborted: %w", ctxErr)
			}
		}

		out, err = op(args)
		if err == nil || attempt == attempts-1 || p.Retryable == nil || !p.Retryable(err) {
			return out, err
		}
		if p.Adjust != nil {
			next, ok := p.Adjust(args)
			if !ok {
				return out, err
			}
			args = next
		}
	}
	return out, err
}
