package pipe

import (
	"context"
	"fmt"
)

// waitControl tells the cancellable waiter how to unwind a platform-level
// wait and whether the wait was interrupted externally (outside the
// caller's token, e.g. Handle.CancelPending from another goroutine).
type waitControl struct {
	interrupt   func()
	interrupted func() bool
}

func readControl(h *Handle) waitControl {
	return waitControl{interrupt: h.interruptRead, interrupted: h.consumeReadInterrupt}
}

func writeControl(h *Handle) waitControl {
	return waitControl{interrupt: h.interruptWrite, interrupted: h.consumeWriteInterrupt}
}

// await runs op as a cancellable wait, honoring three independent
// cancellation sources:
//
//  1. the caller's token already cancelled at call time: op never starts
//     and the result is ErrCanceled;
//  2. the token cancelled while op is in flight: the wait is unwound and
//     the result is ErrCanceled no matter how the interruption surfaced;
//  3. an external interruption of the pending wait not expressed through
//     the token: without an active token this is reported as ErrCanceled,
//     but with an active token that did not fire the result stays an I/O
//     failure, because at this layer "my token fired" cannot be told
//     apart from "something else broke the wait".
//
// hasToken distinguishes the synchronous entry points (no token supplied)
// from the context-taking ones. Any raw transport error from op is
// returned as-is for the endpoint to map through its disconnect policy.
func await(ctx context.Context, hasToken bool, ctl waitControl, op func() error) error {
	if hasToken {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCanceled, err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- op() }()

	if hasToken {
		select {
		case err := <-done:
			return classifyWait(err, true, ctl)
		case <-ctx.Done():
			if ctl.interrupt != nil {
				ctl.interrupt()
			}
			<-done
			if ctl.interrupted != nil {
				ctl.interrupted() // fold a racing external interrupt into the cancel
			}
			return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
		}
	}

	return classifyWait(<-done, false, ctl)
}

// classifyWait resolves how an in-flight interruption that surfaced
// through the ordinary error channel is reported.
func classifyWait(err error, hasToken bool, ctl waitControl) error {
	if err == nil {
		return nil
	}
	external := ctl.interrupted != nil && ctl.interrupted()
	if external && isTimeoutError(err) {
		if hasToken {
			// An active token did not fire, so claiming cancellation
			// would be false; report the interruption as an I/O failure.
			return fmt.Errorf("wait interrupted: %w: %v", ErrIO, err)
		}
		return fmt.Errorf("wait interrupted: %w", ErrCanceled)
	}
	return err
}
