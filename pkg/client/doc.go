// Package client is a typed HTTP client for the chat API.
//
// Requests carry a bearer API key. The server may hand out a session token
// in the X-Session-Token response header; the client stores the latest one
// and sends it back on every later request.
//
// Streaming calls return a *stream.Body for a stream.Processor to consume.
// The streaming HTTP client has no overall timeout; the request context
// bounds the stream instead. No request is retried.
package client
