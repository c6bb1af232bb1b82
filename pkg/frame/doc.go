// Package frame decodes the newline-delimited frame stream produced by the
// chat API into classified frames.
//
// Two framings are accepted on the same stream:
//
//	data: {"delta": ...}\n      server-sent events, terminated by data: [DONE]
//	{"delta": ...}\n            raw JSON lines
//
// Each decoded JSON object is classified as a connection ack, a completion
// signal, out-of-band chat metadata or a content delta. Everything else is
// ignored so newer servers can add frame types without breaking older
// clients. A line that is not valid JSON is logged and skipped; it never
// aborts decoding.
package frame
