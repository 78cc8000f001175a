package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ExtractMethod names the rule that produced a question split.
type ExtractMethod string

const (
	ExtractMarkers    ExtractMethod = "markers"
	ExtractFirstLine  ExtractMethod = "first_line"
	ExtractSingleLine ExtractMethod = "single_line"
	ExtractEmpty      ExtractMethod = "empty"
)

// maxDerivedTitle caps a title cut out of unstructured text.
const maxDerivedTitle = 40

var (
	titleMarkerRe = regexp.MustCompile(`(?im)^[ \t#>*]*(?:제목|title)[ \t*]*[:：][ \t*]*(.*)$`)
	bodyMarkerRe  = regexp.MustCompile(`(?im)^[ \t#>*]*(?:본문|내용|body|content)[ \t*]*[:：][ \t*]*`)
	// inlineBodyRe finds a body marker on the title line itself.
	inlineBodyRe = regexp.MustCompile(`(?i)[ \t*]+(?:본문|내용|body|content)[ \t*]*[:：][ \t*]*`)
)

// ExtractQuestion splits provider text into a title and body. It looks for
// 제목:/본문: (or Title:/Body:) markers first and otherwise uses the first
// line as the title. It never fails; the method reports which rule applied.
// The split is heuristic and can misfire on unexpected phrasing.
func ExtractQuestion(text string) (Question, ExtractMethod) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Question{}, ExtractEmpty
	}

	title, body, ok := splitByMarkers(text)
	if ok {
		return finish(title, body), ExtractMarkers
	}

	first, rest, _ := strings.Cut(text, "\n")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		line := cleanTitle(first)
		return Question{Title: truncateRunes(line, maxDerivedTitle), Content: line}, ExtractSingleLine
	}
	return finish(cleanTitle(first), rest), ExtractFirstLine
}

func splitByMarkers(text string) (title, body string, ok bool) {
	tm := titleMarkerRe.FindStringSubmatchIndex(text)
	bm := bodyMarkerRe.FindStringIndex(text)

	switch {
	case tm != nil && bm != nil && bm[0] > tm[0]:
		title = text[tm[2]:tm[3]]
		body = text[bm[1]:]
		if strings.TrimSpace(cleanTitle(title)) == "" {
			// "제목:" on its own line; the title is the next line before 본문.
			title = firstLine(text[tm[1]:bm[0]])
		}
	case tm != nil && bm != nil:
		title = text[tm[2]:tm[3]]
		body = text[bm[1]:tm[0]]
	case tm != nil && inlineBodyRe.MatchString(text[tm[2]:tm[3]]):
		line := text[tm[2]:tm[3]]
		im := inlineBodyRe.FindStringIndex(line)
		title = line[:im[0]]
		body = line[im[1]:] + text[tm[1]:]
	case tm != nil:
		title = text[tm[2]:tm[3]]
		body = text[tm[1]:]
		if strings.TrimSpace(cleanTitle(title)) == "" {
			title, body, _ = strings.Cut(strings.TrimSpace(body), "\n")
		}
	case bm != nil:
		title = firstLine(text[:bm[0]])
		body = text[bm[1]:]
	default:
		return "", "", false
	}
	return cleanTitle(title), body, true
}

func finish(title, body string) Question {
	body = strings.TrimSpace(body)
	if title == "" {
		title = truncateRunes(cleanTitle(firstLine(body)), maxDerivedTitle)
	}
	if body == "" {
		body = title
	}
	return Question{Title: title, Content: body}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// cleanTitle drops heading marks, bold markers and wrapping quotes.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#> ")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"「", "」"}, {"『", "』"}} {
		if len(s) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			s = strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
