// Package operator implements Vim-style operator commands (delete, yank,
// indent, outdent, case transforms) as plain functions that callers wrap in
// Executor closures for the dispatcher's OperatorRepeatEngine, and the
// motion-range resolution that turns a keystroke's motion or text object
// into the range an operator acts on. Change and format have operator names
// (OpChange, OpFormat) but no function in this package.
package operator

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/grimeditor/grim/internal/dispatcher"
	"github.com/grimeditor/grim/internal/engine/buffer"
	"github.com/grimeditor/grim/internal/engine/cursor"
	"github.com/grimeditor/grim/internal/engine/rope"
	"github.com/grimeditor/grim/internal/input"
	"github.com/grimeditor/grim/internal/textobject"
)

// Name identifies a Vim-style operator.
type Name string

const (
	OpDelete     Name = "delete"
	OpChange     Name = "change"
	OpYank       Name = "yank"
	OpIndent     Name = "indent"
	OpOutdent    Name = "outdent"
	OpLowercase  Name = "lowercase"
	OpUppercase  Name = "uppercase"
	OpToggleCase Name = "toggleCase"
	OpFormat     Name = "format"
)

// OpRange is the buffer span an operator acts on, plus whether it should be
// treated linewise (e.g. `dd`, `>j`) rather than characterwise.
type OpRange struct {
	Start    buffer.ByteOffset
	End      buffer.ByteOffset
	Linewise bool
}

// ToDispatcherRange converts an OpRange to the dispatcher package's history
// range shape, recording the motion name for the JSON export.
func (r OpRange) ToDispatcherRange(motion string) *dispatcher.Range {
	return &dispatcher.Range{Start: int64(r.Start), End: int64(r.End), Motion: motion}
}

// ResolveRange determines the range an operator applies to: a visual
// selection takes priority, then a motion, then a text object.
func ResolveRange(buf *buffer.Buffer, cursors *cursor.CursorSet, motion *input.Motion, textObj *input.TextObject) (OpRange, error) {
	if cursors != nil && cursors.HasSelection() {
		sel := cursors.Primary().Clamp(buf.Len())
		r := sel.Range()
		return OpRange{Start: r.Start, End: r.End}, nil
	}

	if motion != nil {
		return resolveMotionRange(buf, cursors, motion)
	}
	if textObj != nil {
		return resolveTextObjectRange(buf, cursors, textObj)
	}
	return OpRange{}, ErrMissingMotion
}

func resolveMotionRange(buf *buffer.Buffer, cursors *cursor.CursorSet, motion *input.Motion) (OpRange, error) {
	start := cursors.Primary().Cursor()
	text := buf.Text()
	textLen := buffer.ByteOffset(len(text))

	count := motion.Count
	if count <= 0 {
		count = 1
	}

	var end buffer.ByteOffset
	linewise := false

	switch motion.Name {
	case "word", "w":
		end = findWordEnd(text, start, textLen, count, false)
	case "WORD", "W":
		end = findWordEnd(text, start, textLen, count, true)
	case "wordBack", "b":
		end = findWordBackward(text, start, count, false)
		start, end = end, start
	case "WORDBACK", "B":
		end = findWordBackward(text, start, count, true)
		start, end = end, start
	case "line", "l":
		linewise = true
		point := buf.OffsetToPoint(start)
		lineStart := buf.LineStartOffset(point.Line)
		endLine := point.Line + uint32(count)
		if endLine > buf.LineCount() {
			endLine = buf.LineCount()
		}
		var lineEnd buffer.ByteOffset
		if endLine >= buf.LineCount() {
			lineEnd = buf.Len()
		} else {
			lineEnd = buf.LineStartOffset(endLine)
		}
		start, end = lineStart, lineEnd
	case "lineEnd", "$":
		point := buf.OffsetToPoint(start)
		end = buf.LineEndOffset(point.Line)
	case "lineStart", "0":
		point := buf.OffsetToPoint(start)
		end = buf.LineStartOffset(point.Line)
		start, end = end, start
	case "firstNonBlank", "^":
		point := buf.OffsetToPoint(start)
		lineStart := buf.LineStartOffset(point.Line)
		lineText := buf.LineText(point.Line)
		end = lineStart
		for i, r := range lineText {
			if !unicode.IsSpace(r) {
				end = lineStart + buffer.ByteOffset(i)
				break
			}
		}
		if end < start {
			start, end = end, start
		}
	case "documentEnd", "G":
		end = buf.Len()
		linewise = true
	case "documentStart", "gg":
		end = 0
		start, end = end, start
		linewise = true
	default:
		return OpRange{}, ErrUnknownMotion
	}

	if motion.Direction == input.DirBackward && start < end {
		start, end = end, start
	}

	return OpRange{Start: start, End: end, Linewise: linewise}, nil
}

func resolveTextObjectRange(buf *buffer.Buffer, cursors *cursor.CursorSet, textObj *input.TextObject) (OpRange, error) {
	offset := cursors.Primary().Cursor()
	r := rope.NewBuilder()
	r.WriteString(buf.Text())
	doc := r.Build()

	kind, ok := textObjectKind(textObj.Name)
	if !ok {
		return OpRange{}, ErrUnknownTextObject
	}
	linewise := kind == textobject.Paragraph

	tr, err := textobject.Resolve(doc, rope.ByteOffset(offset), kind, !textObj.Inner)
	if err != nil {
		return OpRange{}, err
	}
	return OpRange{Start: buffer.ByteOffset(tr.Start), End: buffer.ByteOffset(tr.End), Linewise: linewise}, nil
}

func textObjectKind(name string) (textobject.Kind, bool) {
	switch name {
	case "word", "w":
		return textobject.Word, true
	case "WORD", "W":
		return textobject.BigWord, true
	case "sentence", "s":
		return textobject.Sentence, true
	case "paragraph", "p":
		return textobject.Paragraph, true
	case "line":
		return textobject.Line, true
	case "paren", "(", ")", "b":
		return textobject.Paren, true
	case "bracket", "[", "]":
		return textobject.Bracket, true
	case "brace", "{", "}", "B":
		return textobject.Brace, true
	case "angle", "<", ">":
		return textobject.Angle, true
	case "quote", `"`, "'", "`":
		return textobject.Quote, true
	case "tag", "t":
		return textobject.Tag, true
	default:
		return 0, false
	}
}

// Delete removes the text in opRange and returns it (for register storage).
func Delete(buf *buffer.Buffer, cursors *cursor.CursorSet, opRange OpRange) (string, error) {
	deleted := buf.TextRange(opRange.Start, opRange.End)
	if err := buf.Delete(opRange.Start, opRange.End); err != nil {
		return "", err
	}
	if cursors != nil {
		cursors.SetPrimary(cursor.NewCursorSelection(opRange.Start))
	}
	return deleted, nil
}

// Yank copies the text in opRange without mutating the buffer.
func Yank(buf *buffer.Buffer, opRange OpRange) string {
	return buf.TextRange(opRange.Start, opRange.End)
}

// Indent adds one level of indentation to every line opRange spans, touching
// lines from the bottom up so earlier insertions don't shift later offsets.
func Indent(buf *buffer.Buffer, opRange OpRange, indentStr string) error {
	for _, line := range linesDescending(buf, opRange) {
		lineStart := buf.LineStartOffset(line)
		if buf.LineText(line) == "" {
			continue
		}
		if _, err := buf.Insert(lineStart, indentStr); err != nil {
			return err
		}
	}
	return nil
}

// Outdent removes up to tabWidth columns of leading indentation from every
// line opRange spans, lines from the bottom up.
func Outdent(buf *buffer.Buffer, opRange OpRange, tabWidth int) error {
	for _, line := range linesDescending(buf, opRange) {
		lineStart := buf.LineStartOffset(line)
		lineText := buf.LineText(line)
		if lineText == "" {
			continue
		}

		removeCount := 0
		removed := 0
		for i, r := range lineText {
			if removed >= tabWidth {
				break
			}
			if r == '\t' {
				removeCount = i + 1
				break
			} else if r == ' ' {
				removed++
				removeCount = i + 1
			} else {
				break
			}
		}

		if removeCount > 0 {
			if err := buf.Delete(lineStart, lineStart+buffer.ByteOffset(removeCount)); err != nil {
				return err
			}
		}
	}
	return nil
}

func linesDescending(buf *buffer.Buffer, opRange OpRange) []uint32 {
	startPoint := buf.OffsetToPoint(opRange.Start)
	endPoint := buf.OffsetToPoint(opRange.End)
	if opRange.End > opRange.Start {
		prevPoint := buf.OffsetToPoint(opRange.End - 1)
		if prevPoint.Line < endPoint.Line {
			endPoint = prevPoint
		}
	}

	lines := make([]uint32, 0, endPoint.Line-startPoint.Line+1)
	for line := startPoint.Line; line <= endPoint.Line; line++ {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] > lines[j] })
	return lines
}

// TransformCase replaces the text in opRange with transform applied to every
// rune; Lowercase, Uppercase, and ToggleCase are built from this.
func TransformCase(buf *buffer.Buffer, opRange OpRange, transform func(rune) rune) error {
	text := buf.TextRange(opRange.Start, opRange.End)
	out := make([]rune, 0, len(text))
	for _, r := range text {
		out = append(out, transform(r))
	}
	_, err := buf.Replace(opRange.Start, opRange.End, string(out))
	return err
}

// ToUpper, ToLower, and ToggleRuneCase are the rune transforms for the matching
// operators.
func ToLower(r rune) rune { return unicode.ToLower(r) }
func ToUpper(r rune) rune { return unicode.ToUpper(r) }
func ToggleRuneCase(r rune) rune {
	if unicode.IsUpper(r) {
		return unicode.ToLower(r)
	}
	return unicode.ToUpper(r)
}

// Motion helper functions, grounded on the same word/paragraph scanning
// rules the textobject package uses for text objects.

func isWordChar(text string, offset buffer.ByteOffset, bigWord bool) bool {
	if int(offset) >= len(text) {
		return false
	}
	r := getRune(text, offset)
	if bigWord {
		return !unicode.IsSpace(r)
	}
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func getRune(text string, offset buffer.ByteOffset) rune {
	if int(offset) >= len(text) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(text[offset:])
	return r
}

func nextRuneEnd(text string, offset, maxOffset buffer.ByteOffset) buffer.ByteOffset {
	if offset >= maxOffset || int(offset) >= len(text) {
		return maxOffset
	}
	_, size := utf8.DecodeRuneInString(text[offset:])
	newOffset := offset + buffer.ByteOffset(size)
	if newOffset > maxOffset {
		return maxOffset
	}
	return newOffset
}

func findWordEnd(text string, offset, maxOffset buffer.ByteOffset, count int, bigWord bool) buffer.ByteOffset {
	for i := 0; i < count && offset < maxOffset; i++ {
		for offset < maxOffset && isWordChar(text, offset, bigWord) {
			offset = nextRuneEnd(text, offset, maxOffset)
		}
		for offset < maxOffset && !isWordChar(text, offset, bigWord) {
			if text[offset] == '\n' {
				offset++
				break
			}
			offset = nextRuneEnd(text, offset, maxOffset)
		}
	}
	return offset
}

func findWordBackward(text string, offset buffer.ByteOffset, count int, bigWord bool) buffer.ByteOffset {
	for i := 0; i < count && offset > 0; i++ {
		offset = prevRuneStart(text, offset)
		for offset > 0 && unicode.IsSpace(getRune(text, offset)) {
			offset = prevRuneStart(text, offset)
		}
		for offset > 0 && isWordChar(text, offset, bigWord) {
			prevOff := prevRuneStart(text, offset)
			if !isWordChar(text, prevOff, bigWord) {
				break
			}
			offset = prevOff
		}
	}
	return offset
}

func prevRuneStart(text string, offset buffer.ByteOffset) buffer.ByteOffset {
	if offset <= 0 {
		return 0
	}
	end := offset
	if int(end) > len(text) {
		end = buffer.ByteOffset(len(text))
	}
	_, size := utf8.DecodeLastRuneInString(text[:end])
	if size == 0 {
		return 0
	}
	return end - buffer.ByteOffset(size)
}
