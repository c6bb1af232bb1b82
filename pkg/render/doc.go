// Package render turns a message tree into terminal text.
//
// A Renderer is built from a Capabilities table that supplies the formatting
// for code, math, content parts, headings and errors. DefaultCapabilities
// highlights code with chroma and styles headings and parts with lipgloss;
// PlainCapabilities emits unstyled text and is used for non-terminal output
// and tests.
//
// Block rows whose payload is not yet an element array are skipped: they
// belong to a frame still in flight. Rows of an unknown type render as a
// placeholder carrying their raw tag.
package render
