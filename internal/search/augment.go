package search

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ziadkadry99/qnagen/internal/logging"
	"github.com/ziadkadry99/qnagen/internal/metrics"
)

// DefaultInterval spaces consecutive search calls.
const DefaultInterval = 200 * time.Millisecond

var tagRe = regexp.MustCompile(`<[^>]*>`)

// Augmenter turns product keywords into a reference block for prompts.
// Queries within one BuildContext call run one at a time, paced by a
// limiter owned by that call. Separate calls do not wait on each other.
type Augmenter struct {
	provider   Provider
	maxResults int
	interval   time.Duration
}

// NewAugmenter creates an Augmenter whose calls each issue at most one
// search per interval.
func NewAugmenter(provider Provider, maxResults int, interval time.Duration) *Augmenter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Augmenter{
		provider:   provider,
		maxResults: maxResults,
		interval:   interval,
	}
}

// Queries returns the deduplicated search queries for a product and topics.
// Blank topics are skipped; with no topics the product name alone is used.
func Queries(product string, topics ...string) []string {
	product = strings.TrimSpace(product)
	var out []string
	seen := map[string]bool{}
	add := func(q string) {
		q = strings.Join(strings.Fields(q), " ")
		if q != "" && !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			add(product + " " + t)
		}
	}
	if len(out) == 0 {
		add(product)
	}
	return out
}

// BuildContext runs the queries and returns the formatted hits along with
// the number of calls issued. Failed queries are logged and skipped.
func (a *Augmenter) BuildContext(ctx context.Context, product string, topics ...string) (string, int) {
	log := logging.FromContext(ctx)
	var (
		sb    strings.Builder
		calls int
	)
	limiter := rate.NewLimiter(rate.Every(a.interval), 1)
	for _, q := range Queries(product, topics...) {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		calls++
		res, err := a.provider.Search(ctx, q, a.maxResults)
		if err != nil || res == nil || !res.Success {
			metrics.SearchCallTotal.WithLabelValues("error").Inc()
			log.Warn("search failed, continuing without it", "query", q, "error", err)
			continue
		}
		metrics.SearchCallTotal.WithLabelValues("ok").Inc()
		writeItems(&sb, q, res.Items)
	}
	return strings.TrimSpace(sb.String()), calls
}

func writeItems(sb *strings.Builder, query string, items []Item) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "[%s]\n", query)
	for _, it := range items {
		title := StripTags(it.Title)
		desc := StripTags(it.Description)
		if title == "" && desc == "" {
			continue
		}
		fmt.Fprintf(sb, "- %s: %s\n", title, desc)
	}
	sb.WriteString("\n")
}

// StripTags removes markup and entities from a search snippet.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(s, "")))
}
