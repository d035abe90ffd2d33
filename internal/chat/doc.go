// Package chat implements the request lifecycle of the chat endpoint.
//
// A request moves through Received -> Validated -> Assembled -> Generated ->
// Responded, or to Errored from any step. The Handler owns:
//
//   - Validation of turns and generation knobs, with defaults for omitted fields.
//   - The model load state: a failed load makes every request fail with the
//     same ModelUnavailable error until restart.
//   - Admission: one generation runs at a time (a weight-1 semaphore) and at
//     most MaxQueueDepth requests are admitted. A full queue or a wait longer
//     than MaxQueueWait returns TooBusy (HTTP 429).
//   - Detachment: a request whose client leaves while queued is dropped; once
//     generation starts it runs to completion on a context without cancellation.
//   - Panic recovery into GenerationError.
//
// Errors carry their HTTP status via StatusCode() so the transport maps them
// without knowing the kinds.
package chat
