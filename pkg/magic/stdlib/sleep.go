package stdlib

import (
	"context"
	"time"

	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

// sleep waits for the value in milliseconds, or until ctx is cancelled.
func sleep(ctx context.Context, _ *signals.Signaler, n *lambda.Node) error {
	ms, err := lambda.GetEx[int32](n)
	if err != nil {
		return err
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
