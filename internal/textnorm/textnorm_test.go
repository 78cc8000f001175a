package textnorm

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStripControl(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ctrl markers", "안녕<ctrl42>하세요", "안녕하세요"},
		{"special tokens", "<|im_start|>hello<|im_end|>", "hello"},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"control chars", "a\x00b\x07c\u200bd", "abc\u200bd"},
		{"keeps tab and joiner", "a\tb \U0001F468\u200d\U0001F469", "a\tb \U0001F468\u200d\U0001F469"},
		{"bom", "\ufefftext", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripControl(tt.in); got != tt.want {
				t.Errorf("StripControl(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	in := "앞 문장\n```markdown\n제목: 질문\n```\n뒤 문장"
	want := "앞 문장\n제목: 질문\n뒤 문장"
	if got := StripCodeFences(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "  a   b\t\tc  \n   d\u3000\u3000e  "
	want := "a b c\nd e"
	if got := CollapseWhitespace(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCollapseNewlines(t *testing.T) {
	if got := CollapseNewlines("a\n\n\n\nb\n\nc\n"); got != "a\n\nb\n\nc" {
		t.Errorf("got %q", got)
	}
}

func TestReflowShortTextUntouched(t *testing.T) {
	in := "짧은 답변입니다. 두 문장입니다."
	if got := Reflow(in); got != in {
		t.Errorf("short text changed: %q", got)
	}
}

func TestReflowKeepsExistingParagraphs(t *testing.T) {
	in := strings.Repeat("가", 100) + "\n\n" + strings.Repeat("나", 100) + "\n\n" + strings.Repeat("다", 100)
	if got := Reflow(in); got != in {
		t.Errorf("paragraphed text changed:\n%s", got)
	}
}

func TestReflowProducesParagraphs(t *testing.T) {
	sentence := "이 제품은 피부 보습에 정말 효과적이었어요. "
	tests := []struct {
		name string
		in   string
	}{
		{"sentences", strings.Repeat(sentence, 12)},
		{"no punctuation", strings.Repeat("보습 크림 사용 후기 ", 30)},
		{"single run", strings.Repeat("가", 240)},
		{"two paragraphs", strings.Repeat(sentence, 6) + "\n\n" + strings.Repeat(sentence, 6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if utf8.RuneCountInString(tt.in) < ReflowThreshold {
				t.Fatalf("fixture too short: %d runes", utf8.RuneCountInString(tt.in))
			}
			got := Reflow(tt.in)
			n := len(Paragraphs(got))
			if n < 3 || n > 5 {
				t.Errorf("got %d paragraphs, want 3..5:\n%s", n, got)
			}
			if strings.Join(strings.Fields(got), "") != strings.Join(strings.Fields(tt.in), "") {
				t.Error("reflow changed the text content")
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences(`정말요? 네! "좋아요." 버전 2.5 출시… 끝`)
	want := []string{"정말요?", "네!", `"좋아요."`, "버전 2.5 출시…", "끝"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBreakBeforeGlyphs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"mid text", "장점은 다음과 같아요 ✅보습력 ✅흡수력", "장점은 다음과 같아요\n\n✅ 보습력\n\n✅ 흡수력"},
		{"at start", "💡팁: 아침에 바르세요", "💡 팁: 아침에 바르세요"},
		{"own line", "요약\n\u2714\ufe0f   가볍다", "요약\n\n\u2714\ufe0f 가볍다"},
		{"no glyphs", "평범한 문장", "평범한 문장"},
		{"rating run", "만족도는 ★★★★★ 입니다.", "만족도는\n\n★★★★★ 입니다."},
		{"trailing run", "정말 좋아요 ✨✨", "정말 좋아요 ✨✨"},
		{"trailing before newline", "추천해요 ✨  \n다음 문장", "추천해요 ✨\n다음 문장"},
		{"spaced run", "결론 ✅ ✅ 강력 추천", "결론\n\n✅ ✅ 강력 추천"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BreakBeforeGlyphs(tt.in)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if strings.Contains(got, " \n") {
				t.Errorf("trailing space before newline in %q", got)
			}
		})
	}
}

func TestNormalizeKeepsRatingTogether(t *testing.T) {
	got := Normalize("만족도는 ★★★★★ 입니다.")
	if n := len(Paragraphs(got)); n != 2 {
		t.Errorf("got %d paragraphs in %q, want 2", n, got)
	}
	if got := Normalize("정말 좋아요 ✨✨"); got != "정말 좋아요 ✨✨" {
		t.Errorf("trailing emoji moved: %q", got)
	}
}

func TestNormalize(t *testing.T) {
	raw := "```\n<ctrl7>첫 줄입니다.   \r\n\r\n\r\n\r\n둘째 줄 📌포인트\n```"
	want := "첫 줄입니다.\n\n둘째 줄\n\n📌 포인트"
	if got := Normalize(raw); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if Normalize(raw) != Normalize(Normalize(raw)) {
		t.Error("Normalize is not idempotent on its own output")
	}
}

func TestReflowOnlyKeepsGlyphsInline(t *testing.T) {
	in := "좋아요 ✅ 추천해요"
	if got := ReflowOnly(in); got != in {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("피부가 당겨요 ✅ 보습이 필요해요. ", 20)
	got := ReflowOnly(long)
	if n := len(Paragraphs(got)); n < 3 {
		t.Errorf("got %d paragraphs, want at least 3", n)
	}
	if strings.Contains(got, "\n\n✅") {
		t.Errorf("glyph got its own paragraph: %q", got)
	}
}
