// Package textnorm cleans raw provider output and reflows it into paragraphs.
// Every function is deterministic and stateless.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// ReflowThreshold is the rune length from which unparagraphed text is re-segmented.
	ReflowThreshold = 200
	minParagraphs   = 3
	maxParagraphs   = 5
	// runesPerParagraph sizes the paragraph count for long inputs.
	runesPerParagraph = 250
)

var (
	controlMarkerRe = regexp.MustCompile(`<ctrl\d+>|<\|[^|>\n]*\|>`)
	fenceLineRe     = regexp.MustCompile("(?m)^[ \t]*```[^\n]*\n?")
	spaceRunRe      = regexp.MustCompile(`[ \t\x{00A0}\x{3000}]+`)
	blankLinesRe    = regexp.MustCompile(`\n{3,}`)
	paragraphSepRe  = regexp.MustCompile(`\n[ \t]*\n`)
)

// StripControl removes provider control markers and non-printable control
// characters. Newlines, tabs, emoji and joiners are kept.
func StripControl(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = controlMarkerRe.ReplaceAllString(s, "")

	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == utf8.RuneError:
			return -1
		case unicode.IsControl(r):
			return -1
		case r == '\uFEFF':
			return -1
		}
		return r
	}, s)
}

// StripCodeFences removes ``` fence lines, keeping the fenced text.
func StripCodeFences(s string) string {
	return fenceLineRe.ReplaceAllString(s, "")
}

// CollapseWhitespace squeezes runs of spaces and tabs and trims every line.
func CollapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// CollapseNewlines reduces three or more consecutive newlines to two.
func CollapseNewlines(s string) string {
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(s, "\n\n"))
}

// Paragraphs splits s on blank lines, dropping empty blocks.
func Paragraphs(s string) []string {
	var out []string
	for _, p := range paragraphSepRe.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clean runs the control, fence and whitespace passes.
func Clean(s string) string {
	return CollapseWhitespace(StripCodeFences(StripControl(s)))
}

// Reflow returns text with at least three paragraphs when it is long
// enough and currently has fewer. Already-paragraphed text is returned as is.
func Reflow(s string) string {
	s = strings.TrimSpace(s)
	if len(Paragraphs(s)) >= minParagraphs || utf8.RuneCountInString(s) < ReflowThreshold {
		return s
	}

	flat := strings.Join(strings.Fields(s), " ")
	n := paragraphCount(flat)

	if sentences := SplitSentences(flat); len(sentences) >= minParagraphs {
		return strings.Join(group(sentences, n, " "), "\n\n")
	}
	if words := strings.Fields(flat); len(words) >= minParagraphs {
		return strings.Join(group(words, n, " "), "\n\n")
	}

	runes := []rune(flat)
	chars := make([]string, len(runes))
	for i, r := range runes {
		chars[i] = string(r)
	}
	return strings.Join(group(chars, minParagraphs, ""), "\n\n")
}

func paragraphCount(s string) int {
	n := utf8.RuneCountInString(s) / runesPerParagraph
	return min(max(n, minParagraphs), maxParagraphs)
}

// group splits items into n nearly equal consecutive chunks (fewer if
// there are fewer items) and joins each chunk with sep.
func group(items []string, n int, sep string) []string {
	n = min(n, len(items))
	out := make([]string, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := start + (len(items)-start)/(n-i)
		out = append(out, strings.Join(items[start:end], sep))
		start = end
	}
	return out
}

// sentenceEnd reports whether r terminates a sentence.
func sentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}

func closingMark(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』':
		return true
	}
	return false
}

// SplitSentences splits text at terminal punctuation followed by whitespace.
// Closing quotes and brackets stay with their sentence.
func SplitSentences(s string) []string {
	runes := []rune(s)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !sentenceEnd(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && (sentenceEnd(runes[j]) || closingMark(runes[j])) {
			j++
		}
		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			i = j - 1
			continue
		}
		if sent := strings.TrimSpace(string(runes[start:j])); sent != "" {
			out = append(out, sent)
		}
		start = j
		i = j - 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

// glyphs are leading symbols that open a new paragraph in running text.
var glyphs = []string{
	"✅", "✔️", "✔", "☑️", "☑", "✓", "💡", "📌", "📍", "🎯", "💬", "❗", "⚠️", "⚠",
	"▶️", "▶", "➡️", "➡", "■", "●", "★", "⭐", "✨", "👉", "🔹", "🔸",
}

// glyphRunRe matches a run of consecutive glyphs with the blanks around it.
var glyphRunRe = func() *regexp.Regexp {
	quoted := make([]string, len(glyphs))
	for i, g := range glyphs {
		quoted[i] = regexp.QuoteMeta(g)
	}
	g := `(?:` + strings.Join(quoted, "|") + `)`
	return regexp.MustCompile(`[ \t]*(` + g + `(?:[ \t]*` + g + `)*)[ \t]*`)
}()

// BreakBeforeGlyphs starts a new paragraph at each run of recognized glyphs
// that leads text on the same line, with one space after the run. A run
// that ends its line (a trailing emoji) stays where it is. A run at the
// start of the text gets no break.
func BreakBeforeGlyphs(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range glyphRunRe.FindAllStringSubmatchIndex(s, -1) {
		start, end, runStart, runEnd := m[0], m[1], m[2], m[3]
		b.WriteString(s[last:start])
		last = end

		leads := end < len(s) && s[end] != '\n' && s[end] != '\r'
		if !leads {
			b.WriteString(s[start:runEnd])
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s[runStart:runEnd])
		b.WriteByte(' ')
	}
	b.WriteString(s[last:])
	// A run that was already alone on its line leaves "\n\n\n".
	return CollapseNewlines(strings.TrimLeft(b.String(), "\n"))
}

// Normalize runs every pass in order: clean, reflow, glyph breaks, newline collapse.
func Normalize(s string) string {
	return CollapseNewlines(BreakBeforeGlyphs(Reflow(Clean(s))))
}

// ReflowOnly reflows already-cleaned text without the glyph pass.
func ReflowOnly(s string) string {
	return CollapseNewlines(Reflow(s))
}
