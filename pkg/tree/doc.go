// Package tree defines the message tree reconstructed from a streamed
// assistant message.
//
// A Tree is an ordered list of rows. Each row is a JSON array whose first
// element is an integer row type followed by a type-specific payload:
//
//	[0, [...elements]]      block content (markdown-like element tree)
//	[1, "go", "code"]       code block: language and source
//	[2, "x^2"]              inline math
//	[3, "\\sum_i x_i"]      block math
//
// Unknown row types are preserved as-is and surface as RowUnknown.
//
// Trees hold plain JSON-decoded values ([]any, map[string]any, string,
// float64, bool, nil) so that structural deltas can be applied to them
// without a schema. The typed accessors in this package are read-only views
// over that representation; they never modify the underlying values.
package tree
