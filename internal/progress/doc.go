// Package progress defines the event stream a batch build pushes to its
// client and the transports that carry it.
//
// Events form a tagged union discriminated by the "type" field. A Channel
// wraps any Sink and enforces the stream lifecycle: one start event first,
// progress counters advancing by exactly one up to the total, no progress
// after generating, and exactly one terminal complete or error event.
// NDJSONSink writes one JSON object per line to a flushed HTTP response;
// WebSocketSink writes one text frame per event.
package progress
