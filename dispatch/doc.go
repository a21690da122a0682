// Package dispatch provides the delivery strategies used by event emitters.
//
// A strategy decides where and when a unit of delivery work runs:
//
//   - Immediate: on the calling goroutine, synchronously.
//   - OnLoop: on the coordination loop; inline when the caller is already there.
//   - NextTurn: always on the coordination loop's next turn, even from the loop
//     itself, to break synchronous re-entrancy.
//   - Background: on a worker pool with a bounded queue.
//   - Serial: on one dedicated goroutine in FIFO order; emissions sharing a
//     Serial instance share its total order.
//
// Hand-off never blocks. Bounded strategies reject work with ErrQueueFull
// when saturated; callers treat a rejected hand-off as a dropped delivery.
// Every strategy runs tasks through an Executor, which recovers panics,
// captures the stack, and reports through a PanicHandler.
package dispatch
