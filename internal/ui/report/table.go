package report

import (
	"strconv"

	"astcensus/internal/core/ports"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	errorStyle  = cellStyle.Foreground(lipgloss.Color("#F87171"))
	okStyle     = cellStyle.Foreground(lipgloss.Color("#10B981"))
)

const statusColumn = 4

// RenderTable draws results as a bordered table.
func RenderTable(results []ports.AggregateResult) []byte {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		if r.Failed {
			status = "ERROR"
		} else if r.HasErrors() {
			status = "PARTIAL"
		}
		rows = append(rows, []string{
			r.Name,
			strconv.Itoa(r.FileCount()),
			strconv.Itoa(r.TotalNodeCount),
			strconv.Itoa(r.TotalSourceLines),
			status,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Spec", "Files", "Nodes", "SLOC", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow || row < 0 || row >= len(rows):
				return headerStyle
			case col == statusColumn && rows[row][col] == "ok":
				return okStyle
			case col == statusColumn:
				return errorStyle
			case col > 0:
				return numberStyle
			default:
				return cellStyle
			}
		})
	return []byte(t.String() + "\n")
}
