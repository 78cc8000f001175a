package usagelog

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Convert returns a copy of s with every cost multiplied by rate and
// labelled with currency.
func (s Summary) Convert(currency string, rate float64) (Summary, error) {
	if rate <= 0 {
		return Summary{}, fmt.Errorf("conversion rate must be positive, got %v", rate)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return Summary{}, fmt.Errorf("target currency is required")
	}

	out := Summary{Currency: currency, Steps: make([]StepSummary, len(s.Steps)), Total: s.Total}
	for i, st := range s.Steps {
		st.Cost *= rate
		out.Steps[i] = st
	}
	out.Total.Cost *= rate
	return out, nil
}

// FormatSummary renders a summary as an aligned text table.
func FormatSummary(s *Summary) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "STEP\tRUNS\tFAILED\tCALLS\tFALLBACKS\tSEARCHES\tTOKENS\tCOST (%s)\n", s.Currency)
	for _, st := range append(s.Steps, s.Total) {
		cost := fmt.Sprintf("%.4f", st.Cost)
		if st.UnpricedRuns > 0 {
			cost += fmt.Sprintf(" (+%d unpriced)", st.UnpricedRuns)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			st.Step, st.Runs, st.Failed, st.Calls, st.Fallbacks, st.SearchCalls, st.TotalTokens, cost)
	}
	w.Flush()
	return buf.String()
}
