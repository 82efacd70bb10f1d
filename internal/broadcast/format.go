package broadcast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"dealbot/internal/i18n"
	"dealbot/internal/transport"
)

// FormatResult renders res for human display in lang. Pure function:
// no side effects, identical inputs yield identical text.
func FormatResult(res *Result, lang string) string {
	// Zero recipients means nothing could fail; report 100%.
	successRate := 100.0
	if res.TotalRecipients > 0 {
		successRate = float64(res.SuccessCount) / float64(res.TotalRecipients) * 100
	}

	var b strings.Builder
	b.WriteString(i18n.T(lang, "bc_header", nil))
	b.WriteString("\n\n")
	b.WriteString(i18n.T(lang, "bc_success", map[string]string{
		"count": strconv.Itoa(res.SuccessCount),
		"rate":  fmt.Sprintf("%.1f", successRate),
	}))
	b.WriteString("\n")
	b.WriteString(i18n.T(lang, "bc_failed", map[string]string{"count": strconv.Itoa(res.FailureCount)}))
	b.WriteString("\n")
	b.WriteString(i18n.T(lang, "bc_total", map[string]string{"count": strconv.Itoa(res.TotalRecipients)}))
	b.WriteString("\n")
	b.WriteString(i18n.T(lang, "bc_duration", map[string]string{
		"seconds": fmt.Sprintf("%.1f", res.Duration.Seconds()),
	}))
	b.WriteString("\n")

	if len(res.Errors) > 0 {
		b.WriteString("\n")
		b.WriteString(i18n.T(lang, "bc_err_title", nil))
		b.WriteString("\n")
		for _, kind := range sortedKinds(res.Errors) {
			b.WriteString("  • ")
			b.WriteString(i18n.T(lang, "err_"+string(kind), nil))
			b.WriteString(": ")
			b.WriteString(strconv.Itoa(res.Errors[kind]))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func sortedKinds(m map[transport.ErrorKind]int) []transport.ErrorKind {
	kinds := make([]transport.ErrorKind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
