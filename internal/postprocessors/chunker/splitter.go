package chunker

import (
	"strings"
	"unicode/utf8"
)

// span is a byte range of the document text.
type span struct {
	start, end int
}

// splitter holds the state of one document split.
// Every span it returns is a substring of text; together they cover it.
type splitter struct {
	text    string
	size    int
	overlap int
	count   func(string) int
}

func (s *splitter) tokens(sp span) int {
	return s.count(s.text[sp.start:sp.end])
}

// split returns chunk spans for text[start:end] using separators in priority order.
func (s *splitter) split(start, end int, separators []string) []span {
	whole := span{start, end}
	if s.tokens(whole) <= s.size {
		return []span{whole}
	}

	sep, rest := pickSeparator(s.text[start:end], separators)
	pieces := splitKeep(s.text[start:end], start, sep)

	var out, pending []span
	for _, piece := range pieces {
		if s.tokens(piece) <= s.size {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			// Atomic unit larger than a chunk: kept whole.
			out = append(out, piece)
			continue
		}
		out = append(out, s.split(piece.start, piece.end, rest)...)
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending)...)
	}
	return out
}

// merge greedily packs contiguous pieces into windows of at most size tokens,
// starting each window with up to overlap tokens from the end of the previous one.
func (s *splitter) merge(pieces []span) []span {
	counts := make([]int, len(pieces))
	for i, pc := range pieces {
		counts[i] = s.tokens(pc)
	}

	var out []span
	start, total, prevEnd := 0, 0, 0
	for i := 0; i <= len(pieces); {
		if i < len(pieces) && (i == start || total+counts[i] <= s.size) {
			total += counts[i]
			i++
			continue
		}
		if start == i {
			break
		}

		end := s.fit(pieces, start, i)
		if end <= prevEnd {
			// The carried overlap leaves no room for new text; start clean.
			start, i, total = prevEnd, prevEnd, 0
			continue
		}
		out = append(out, span{pieces[start].start, pieces[end-1].end})
		prevEnd = end
		if end < i {
			// Summed piece counts underestimated the joined text.
			i, total = end, sum(counts[start:end])
		}
		if i == len(pieces) {
			break
		}
		for start < i && (total > s.overlap || total+counts[i] > s.size) {
			total -= counts[start]
			start++
		}
	}
	return out
}

// fit shrinks the window [start, end) until its joined text is within size.
// A single piece always fits.
func (s *splitter) fit(pieces []span, start, end int) int {
	for end-start > 1 && s.tokens(span{pieces[start].start, pieces[end-1].end}) > s.size {
		end--
	}
	return end
}

func sum(counts []int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// foldBlank merges whitespace-only spans into the preceding span, or into
// the following one when there is none before, so no chunk is blank.
// Coverage is unchanged.
func foldBlank(text string, spans []span) []span {
	out := make([]span, 0, len(spans))
	carry := -1
	for _, sp := range spans {
		if strings.TrimSpace(text[sp.start:sp.end]) == "" {
			if len(out) > 0 {
				out[len(out)-1].end = max(out[len(out)-1].end, sp.end)
			} else if carry < 0 || sp.start < carry {
				carry = sp.start
			}
			continue
		}
		if carry >= 0 {
			sp.start = min(sp.start, carry)
			carry = -1
		}
		out = append(out, sp)
	}
	return out
}

// pickSeparator returns the first separator present in text and the ones after it.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	if len(separators) == 0 {
		return "", nil
	}
	return separators[len(separators)-1], nil
}

// splitKeep cuts text after every occurrence of sep, keeping the separator
// on the preceding piece. An empty separator cuts between runes.
// Offsets are shifted by base.
func splitKeep(text string, base int, sep string) []span {
	var out []span
	if sep == "" {
		for i := 0; i < len(text); {
			_, size := utf8.DecodeRuneInString(text[i:])
			out = append(out, span{base + i, base + i + size})
			i += size
		}
		return out
	}

	pos := 0
	for {
		idx := strings.Index(text[pos:], sep)
		if idx < 0 {
			break
		}
		end := pos + idx + len(sep)
		out = append(out, span{base + pos, base + end})
		pos = end
	}
	if pos < len(text) {
		out = append(out, span{base + pos, base + len(text)})
	}
	return out
}
