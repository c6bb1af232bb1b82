// Package patch applies streamed structural deltas to message trees.
//
// Three delta shapes are understood, checked in this order:
//
//  1. The append sentinel [[i0, i1, ..., "text"], 9, 9]: concatenate "text"
//     onto the string leaf found at path i0/i1/... This keeps streaming text
//     cheap on the wire.
//  2. An RFC 6902 JSON Patch operation list ([{"op": "add", ...}, ...]).
//  3. A jsondiffpatch delta: [new] adds, [old, new] replaces, [old, 0, 0]
//     deletes, [patch, 0, 2] applies a diff-match-patch text patch,
//     ["", dest, 3] moves an array item, {"_t": "a", ...} patches an array
//     and any other object patches an object key by key.
//
// Application is best effort. Fragments that reference missing paths or
// carry an unknown shape are skipped and counted, so a partially applied
// tree is rendered instead of aborting the stream. Apply never modifies its
// input: touched containers are copied, untouched branches are shared.
package patch
