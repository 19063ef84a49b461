// Package operator implements Vim-style operators — delete, yank, indent,
// outdent, and case transforms — as plain functions over
// internal/engine/buffer and internal/engine/cursor, plus the motion and
// text-object range resolution that decides what span an operator acts on.
// Change and format are recognised as operator names (OpChange, OpFormat)
// but have no function in this package.
//
// ResolveRange picks a range from, in priority order, the active visual
// selection, a motion, or a text object (the latter delegating to
// internal/textobject). The resulting OpRange is then passed to Delete,
// Yank, Indent, Outdent, or TransformCase, which a caller typically wraps
// in a dispatcher.Executor closure so the operation can be recorded by the
// OperatorRepeatEngine and replayed with RepeatLast/RepeatLastN.
//
// NormalMode sits in front of all of this: it drives internal/input/vim's
// keystroke parser, translates completed commands into input.Action
// values, and for operator commands calls ResolveRange itself before
// driving the engine's Start/CompleteOperator pair.
package operator
