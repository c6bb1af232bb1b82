// Package storage persists assistant messages reconstructed from streams.
//
// The Store interface is implemented by the memory and postgres adapters.
// A Recorder turns stream callbacks into stored messages: it captures chat
// metadata frames while streaming and saves the final tree when the run
// completes or fails.
package storage
