package report

import (
	"fmt"
	"strings"

	"astcensus/internal/core/ports"
)

// RenderTSV writes one row per spec. Tabs and newlines in names are
// replaced with spaces.
func RenderTSV(results []ports.AggregateResult) []byte {
	var buf strings.Builder
	buf.WriteString("Spec\tFiles\tNodes\tSLOC\tErrors\tFailed\n")
	for _, r := range results {
		buf.WriteString(fmt.Sprintf("%s\t%d\t%d\t%d\t%d\t%t\n",
			tsvField(r.Name),
			r.FileCount(),
			r.TotalNodeCount,
			r.TotalSourceLines,
			len(r.Errors),
			r.Failed,
		))
	}
	return []byte(buf.String())
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
