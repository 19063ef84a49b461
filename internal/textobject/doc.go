// Package textobject locates structural ranges of text — words, sentences,
// paragraphs, lines, balanced delimiter pairs, and quoted strings — around a
// byte offset in a rope.
//
// Resolve never mutates its rope argument; callers apply the returned range
// through the buffer package if an edit is required.
package textobject
