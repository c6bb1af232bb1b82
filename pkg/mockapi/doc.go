// Package mockapi implements a deterministic stand-in for the chat API.
//
// The server answers chat and message requests in all three response modes.
// In stream mode it sends the connected acknowledgement, chat metadata
// frames, a sequence of tree deltas that build the assistant reply and a
// final [DONE] marker. Options select degraded framings used in tests: raw
// JSON lines without the SSE prefix, an injected malformed line, and a
// stream that ends without [DONE].
package mockapi
