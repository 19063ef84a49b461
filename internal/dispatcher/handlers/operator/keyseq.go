package operator

import (
	"github.com/grimeditor/grim/internal/dispatcher"
	"github.com/grimeditor/grim/internal/engine/buffer"
	"github.com/grimeditor/grim/internal/engine/cursor"
	"github.com/grimeditor/grim/internal/input"
	"github.com/grimeditor/grim/internal/input/vim"
)

// NormalMode drives a vim-style keystroke parser across incoming key
// events, translates completed commands into the editor-wide input.Action
// vocabulary, and routes operator+motion/text-object commands through a
// dispatcher.Engine so they participate in dot-repeat history.
type NormalMode struct {
	parser *vim.Parser
	ctx    *input.Context
	engine *dispatcher.Engine
	exec   map[Name]dispatcher.Executor
}

// NewNormalMode creates a controller that resolves completed operator
// commands against exec, keyed by operator Name.
func NewNormalMode(engine *dispatcher.Engine, exec map[Name]dispatcher.Executor) *NormalMode {
	return &NormalMode{
		parser: vim.NewParser(),
		ctx:    input.NewContext(),
		engine: engine,
		exec:   exec,
	}
}

// Context returns the pending-state tracker kept in sync with keystrokes,
// for status-line rendering (e.g. showing "2d" while an operator awaits
// its motion).
func (n *NormalMode) Context() *input.Context {
	return n.ctx
}

// HandleKey feeds one key event through the parser. ok is false while a
// multi-key sequence ("2dw", `di"`) is still accumulating or was rejected.
// Once a command completes, it returns the translated Action; for operator
// commands it additionally resolves the range against buf/cursors and
// applies it through the engine before returning.
func (n *NormalMode) HandleKey(event vim.KeyEvent, buf *buffer.Buffer, cursors *cursor.CursorSet) (input.Action, bool, error) {
	if event.IsRune() {
		n.ctx.AppendToSequence(event.Rune)
	}

	result := n.parser.Parse(event)
	if result.Status == vim.StatusPending {
		return input.Action{}, false, nil
	}
	n.ctx.ClearPending()
	if result.Status != vim.StatusComplete {
		return input.Action{}, false, nil
	}

	action := buildAction(result.Command)
	if result.Command.Operator == nil {
		return action, true, nil
	}

	err := n.applyOperator(result.Command, action, buf, cursors)
	return action, true, err
}

// buildAction translates a completed vim.Command into an Action, exercising
// the With* builders so count/register/motion/text-object stay consistent
// with how other Action producers (the plugin API, the command palette)
// build one.
func buildAction(cmd *vim.Command) input.Action {
	action := input.Action{Name: cmd.Action, Source: input.SourceKeyboard}
	action = action.WithCount(cmd.GetCount())
	if cmd.Register != 0 {
		action = action.WithRegister(cmd.Register)
	}
	if cmd.Motion != nil {
		action = action.WithMotion(motionFromVim(cmd))
	}
	if cmd.TextObject != nil {
		action = action.WithTextObject(textObjectFromVim(cmd.TextObject, cmd.TextObjectPrefix))
	}
	if cmd.CharArg != 0 {
		action.Args.Extra = map[string]interface{}{"charArg": string(cmd.CharArg)}
	}
	return action
}

func motionFromVim(cmd *vim.Command) *input.Motion {
	name, dir := motionNameFromVim(cmd.Motion.Name)
	return &input.Motion{
		Name:      name,
		Direction: dir,
		Inclusive: cmd.Motion.Inclusive,
		Count:     cmd.GetCount(),
	}
}

// motionNameFromVim maps the vim package's long-form motion names onto the
// shorter names ResolveRange's motion table recognizes, and assigns the
// Direction it understands for reversing start/end on backward motions.
func motionNameFromVim(name string) (string, input.Direction) {
	switch name {
	case "wordForward":
		return "word", input.DirForward
	case "WORDForward":
		return "WORD", input.DirForward
	case "wordBackward":
		return "wordBack", input.DirBackward
	case "WORDBackward":
		return "WORDBACK", input.DirBackward
	case "lineStart":
		return "lineStart", input.DirNone
	case "lineEnd":
		return "lineEnd", input.DirNone
	case "firstNonBlank":
		return "firstNonBlank", input.DirNone
	case "documentStart":
		return "documentStart", input.DirBackward
	case "documentEnd":
		return "documentEnd", input.DirForward
	case "up":
		return "line", input.DirUp
	case "down":
		return "line", input.DirDown
	default:
		return name, input.DirNone
	}
}

func textObjectFromVim(t *vim.TextObject, prefix vim.TextObjectPrefix) *input.TextObject {
	return &input.TextObject{Name: t.Name, Inner: prefix == vim.PrefixInner}
}

// operatorNameFromVim maps a vim.Operator's identifier onto this package's
// Name vocabulary.
func operatorNameFromVim(vimName string) (Name, bool) {
	switch vimName {
	case "delete":
		return OpDelete, true
	case "change":
		return OpChange, true
	case "yank":
		return OpYank, true
	case "indentRight":
		return OpIndent, true
	case "indentLeft":
		return OpOutdent, true
	case "format":
		return OpFormat, true
	case "toLower":
		return OpLowercase, true
	case "toUpper":
		return OpUppercase, true
	case "toggleCase":
		return OpToggleCase, true
	default:
		return "", false
	}
}

// applyOperator resolves the range a completed operator+motion/text-object
// command acts on and drives it through the engine's Start/CompleteOperator
// pair so the operation is recorded for dot-repeat, then invokes the
// Executor registered for that operator.
func (n *NormalMode) applyOperator(cmd *vim.Command, action input.Action, buf *buffer.Buffer, cursors *cursor.CursorSet) error {
	name, ok := operatorNameFromVim(cmd.Operator.Name)
	if !ok {
		return ErrUnknownOperator
	}
	handler, ok := n.exec[name]
	if !ok {
		return ErrUnknownOperator
	}

	rng, err := ResolveRange(buf, cursors, action.Args.Motion, action.Args.TextObject)
	if err != nil {
		return err
	}
	if cmd.Linewise {
		rng.Linewise = true
	}

	if err := n.engine.StartOperator(string(name), action.Count, handler); err != nil {
		return err
	}
	_, err = n.engine.CompleteOperator(rng.ToDispatcherRange(motionLabel(cmd)))
	return err
}

func motionLabel(cmd *vim.Command) string {
	switch {
	case cmd.Motion != nil:
		return cmd.Motion.Name
	case cmd.TextObject != nil:
		return cmd.TextObject.Name
	default:
		return ""
	}
}
