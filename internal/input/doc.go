// Package input describes the editing state consumed by Grim's operator and
// text-object engines.
//
// It provides the shared vocabulary — Action, Motion, TextObject, Context —
// that the vim package's parser, the operator handlers, and the plugin API
// build on, without committing to any particular keystroke-to-action
// dispatch pipeline.
package input
