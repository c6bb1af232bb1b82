// Package api defines the wire types of the chat API: chats, messages,
// request bodies and the structured error envelope.
//
// The package performs no I/O. Message content travels in two forms: the
// rendered Markdown-like Content string, and the structured Tree that the
// streaming endpoint builds incrementally and that package tree interprets.
//
// Core types:
//   - [Chat]: a conversation with its messages
//   - [Message]: one user or assistant turn
//   - [CreateChatRequest], [SendMessageRequest]: request bodies
//   - [ResponseMode]: sync, async or streamed responses
//   - [APIError]: structured error with type, code, param and message
package api
