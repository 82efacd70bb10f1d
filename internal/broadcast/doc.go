// Package broadcast sends one message to every subscribed recipient.
//
// The package has three parts:
//
//   - Queue: a FIFO task queue that executes submitted tasks one at a
//     time, paced to a maximum dispatch rate, with bounded retry on
//     throttling and server errors. One Queue instance is the
//     process-wide rate-limiting boundary for outbound sends.
//   - Broadcaster: takes a point-in-time snapshot of the subscriber
//     list, submits one send task per recipient in bounded batches,
//     classifies failures, unsubscribes recipients that blocked the
//     bot, and aggregates everything into a Result.
//   - FormatResult: renders a Result for human display, localized.
//
// Delivery semantics
//
// Broadcasts are best-effort and at-most-once per recipient. A
// recipient's failure never aborts the batch; every recipient yields
// exactly one outcome in the final Result. Only a failure to fetch the
// subscriber snapshot aborts the broadcast.
package broadcast
