package textobject

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"github.com/grimeditor/grim/internal/engine/rope"
	"github.com/rivo/uniseg"
)

// Kind identifies the category of text object to resolve.
type Kind uint8

const (
	Word Kind = iota
	BigWord
	Sentence
	Paragraph
	Line
	Paren    // ( )
	Bracket  // [ ]
	Brace    // { }
	Angle    // < >
	Quote    // matches any of ' " `
	Tag
)

// Range is a byte span within a rope, half-open [Start, End).
type Range struct {
	Start rope.ByteOffset
	End   rope.ByteOffset
}

var (
	// ErrNoMatchingOpeningBracket is returned when a balanced-block lookup
	// cannot find an unmatched opening delimiter scanning backward.
	ErrNoMatchingOpeningBracket = errors.New("textobject: no matching opening bracket")
	// ErrNoMatchingClosingBracket is returned when a balanced-block lookup
	// cannot find an unmatched closing delimiter scanning forward.
	ErrNoMatchingClosingBracket = errors.New("textobject: no matching closing bracket")
	// ErrNoMatchingQuote is returned when an opening or closing quote cannot
	// be found around the offset.
	ErrNoMatchingQuote = errors.New("textobject: no matching quote")
	// ErrNotImplemented is returned for text object kinds reserved for
	// future implementation (tag objects).
	ErrNotImplemented = errors.New("textobject: not implemented")
)

// Resolve computes the byte range of the text object of the given kind
// surrounding offset in r. includeDelimiters controls whether an enclosing
// pair (brackets or quotes) is included in the returned range ("around" vs.
// "inner" in Vim terms).
func Resolve(r rope.Rope, offset rope.ByteOffset, kind Kind, includeDelimiters bool) (Range, error) {
	text := r.String()
	switch kind {
	case Word:
		start, end := wordBounds(text, offset, !includeDelimiters, false)
		return Range{start, end}, nil
	case BigWord:
		start, end := wordBounds(text, offset, !includeDelimiters, true)
		return Range{start, end}, nil
	case Sentence:
		start, end := sentenceBounds(text, offset, !includeDelimiters)
		return Range{start, end}, nil
	case Paragraph:
		start, end := paragraphBounds(text, offset, !includeDelimiters)
		return Range{start, end}, nil
	case Line:
		point := r.OffsetToPoint(offset)
		return Range{r.LineStartOffset(point.Line), r.LineEndOffset(point.Line)}, nil
	case Paren:
		return balancedBlock(text, int(offset), '(', ')', includeDelimiters)
	case Bracket:
		return balancedBlock(text, int(offset), '[', ']', includeDelimiters)
	case Brace:
		return balancedBlock(text, int(offset), '{', '}', includeDelimiters)
	case Angle:
		return balancedBlock(text, int(offset), '<', '>', includeDelimiters)
	case Quote:
		return quotedRange(text, offset, includeDelimiters)
	case Tag:
		return Range{}, ErrNotImplemented
	default:
		return Range{}, ErrNotImplemented
	}
}

func isWordChar(r rune, big bool) bool {
	if big {
		return !unicode.IsSpace(r)
	}
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func runeAt(text string, offset rope.ByteOffset) rune {
	if int(offset) >= len(text) || offset < 0 {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(text[offset:])
	return r
}

func nextRuneEnd(text string, offset, max rope.ByteOffset) rope.ByteOffset {
	if offset >= max || int(offset) >= len(text) {
		return max
	}
	_, size := utf8.DecodeRuneInString(text[offset:])
	next := offset + rope.ByteOffset(size)
	if next > max {
		return max
	}
	return next
}

func prevRuneStart(text string, offset rope.ByteOffset) rope.ByteOffset {
	if offset <= 0 {
		return 0
	}
	end := offset
	if int(end) > len(text) {
		end = rope.ByteOffset(len(text))
	}
	_, size := utf8.DecodeLastRuneInString(text[:end])
	if size == 0 {
		return 0
	}
	return end - rope.ByteOffset(size)
}

// graphemeClusterEnd returns the end offset of the grapheme cluster that
// begins at start, so a word/WORD scan never splits a combining-mark or
// joined-emoji sequence mid-cluster.
func graphemeClusterEnd(text string, start rope.ByteOffset) rope.ByteOffset {
	if int(start) >= len(text) {
		return start
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(text[start:], -1)
	if len(cluster) == 0 {
		return nextRuneEnd(text, start, rope.ByteOffset(len(text)))
	}
	return start + rope.ByteOffset(len(cluster))
}

// prevGraphemeStart returns the start offset of the grapheme cluster ending
// at offset. Clusters are short, so it is enough to back up a handful of
// rune boundaries and replay uniseg's forward segmentation from there.
func prevGraphemeStart(text string, offset rope.ByteOffset) rope.ByteOffset {
	if offset <= 0 {
		return 0
	}
	lower := offset
	for i := 0; i < 8 && lower > 0; i++ {
		lower = prevRuneStart(text, lower)
	}
	pos := lower
	for pos < offset {
		next := graphemeClusterEnd(text, pos)
		if next <= pos {
			break
		}
		if next >= offset {
			return pos
		}
		pos = next
	}
	return pos
}

// wordBounds extends backward and forward across word characters. When inner
// is false, trailing non-newline whitespace is absorbed into the range.
func wordBounds(text string, offset rope.ByteOffset, inner, big bool) (rope.ByteOffset, rope.ByteOffset) {
	max := rope.ByteOffset(len(text))
	if offset >= max {
		return offset, offset
	}

	start := offset
	for start > 0 && isWordChar(runeAt(text, prevGraphemeStart(text, start)), big) {
		start = prevGraphemeStart(text, start)
	}

	end := offset
	for end < max && isWordChar(runeAt(text, end), big) {
		end = graphemeClusterEnd(text, end)
	}

	if !inner {
		for end < max && unicode.IsSpace(runeAt(text, end)) && text[end] != '\n' {
			end = nextRuneEnd(text, end, max)
		}
	}

	return start, end
}

// sentenceBounds scans backward to the previous terminator then skips
// whitespace, and forward to and including the next terminator.
func sentenceBounds(text string, offset rope.ByteOffset, inner bool) (rope.ByteOffset, rope.ByteOffset) {
	max := rope.ByteOffset(len(text))

	start := offset
	for start > 0 {
		r := runeAt(text, prevRuneStart(text, start))
		if r == '.' || r == '!' || r == '?' {
			break
		}
		start = prevRuneStart(text, start)
	}
	for start < max && unicode.IsSpace(runeAt(text, start)) {
		start = nextRuneEnd(text, start, max)
	}

	end := offset
	for end < max {
		r := runeAt(text, end)
		end = nextRuneEnd(text, end, max)
		if r == '.' || r == '!' || r == '?' {
			break
		}
	}

	if !inner {
		for end < max && unicode.IsSpace(runeAt(text, end)) {
			end = nextRuneEnd(text, end, max)
		}
	}

	return start, end
}

// paragraphBounds finds the span between consecutive blank lines.
func paragraphBounds(text string, offset rope.ByteOffset, inner bool) (rope.ByteOffset, rope.ByteOffset) {
	max := rope.ByteOffset(len(text))

	start := offset
	for start > 0 {
		if text[start-1] == '\n' && (start < 2 || text[start-2] == '\n') {
			break
		}
		start--
	}

	end := offset
	for end < max {
		if text[end] == '\n' && (end+1 >= max || text[end+1] == '\n') {
			end++
			break
		}
		end++
	}

	if !inner {
		for end < max && text[end] == '\n' {
			end++
		}
	}

	return start, end
}

// balancedBlock scans backward counting close-chars in a depth register,
// stopping at the first unmatched open-char, then scans forward with the
// symmetric algorithm for the matching close-char. Delimiters are ASCII, so
// byte offsets double as indices directly.
func balancedBlock(text string, offset int, open, close byte, includeDelimiters bool) (Range, error) {
	n := len(text)
	if offset > n {
		offset = n
	}

	var startIdx int
	if offset < n && text[offset] == open {
		startIdx = offset
	} else {
		backFrom := offset
		if offset < n && text[offset] == close {
			backFrom = offset - 1
		}
		depth := 0
		found := -1
		for i := backFrom; i >= 0; i-- {
			switch text[i] {
			case close:
				depth++
			case open:
				if depth == 0 {
					found = i
				} else {
					depth--
				}
			}
			if found >= 0 {
				break
			}
		}
		if found < 0 {
			return Range{}, ErrNoMatchingOpeningBracket
		}
		startIdx = found
	}

	var endIdx int
	if offset < n && text[offset] == close {
		endIdx = offset
	} else {
		depth := 0
		found := -1
		for i := startIdx + 1; i < n; i++ {
			switch text[i] {
			case open:
				depth++
			case close:
				if depth == 0 {
					found = i
				} else {
					depth--
				}
			}
			if found >= 0 {
				break
			}
		}
		if found < 0 {
			return Range{}, ErrNoMatchingClosingBracket
		}
		endIdx = found
	}

	start, end := startIdx, endIdx+1
	if !includeDelimiters {
		start++
		end--
		if start > end {
			end = start
		}
	}
	return Range{rope.ByteOffset(start), rope.ByteOffset(end)}, nil
}

// quotedRange scans backward for an unescaped opening quote (preceded by a
// byte that is not a backslash), then forward symmetrically. Quote
// characters are ASCII, so byte offsets double as indices directly.
func quotedRange(text string, offset rope.ByteOffset, includeDelimiters bool) (Range, error) {
	n := len(text)
	pos := int(offset)
	if pos > n {
		pos = n
	}

	startIdx := -1
	var quote byte
	for i := pos; i > 0; i-- {
		c := text[i-1]
		if (c == '\'' || c == '"' || c == '`') && !isEscaped(text, i-1) {
			startIdx = i - 1
			quote = c
			break
		}
	}
	if startIdx < 0 {
		return Range{}, ErrNoMatchingQuote
	}

	endIdx := -1
	for i := startIdx + 1; i < n; i++ {
		if text[i] == quote && !isEscaped(text, i) {
			endIdx = i
			break
		}
	}
	if endIdx < 0 {
		return Range{}, ErrNoMatchingQuote
	}

	start, end := startIdx, endIdx+1
	if !includeDelimiters && end > start+1 {
		start++
		end--
	}
	return Range{rope.ByteOffset(start), rope.ByteOffset(end)}, nil
}

func isEscaped(text string, pos int) bool {
	return pos > 0 && text[pos-1] == '\\'
}
