package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/nightowl/internal/aggregator"
	"github.com/harunnryd/nightowl/internal/geo"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
	badStyle     lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
		badStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Padding(0, 1),
	}
}

func (f *TableFormatter) rows(row, col int) lipgloss.Style {
	switch {
	case row == table.HeaderRow:
		return f.headerStyle
	case row%2 == 0:
		return f.evenRowStyle
	default:
		return f.oddRowStyle
	}
}

func (f *TableFormatter) FormatAreas(areas []geo.Area) (string, error) {
	if len(areas) == 0 {
		return "No areas configured", nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(f.rows).
		Headers("Area", "Borough", "Center", "Radius", "Aliases")

	for _, a := range areas {
		t.Row(
			a.Name,
			a.Borough,
			formatCoord(a.Center),
			fmt.Sprintf("%.1f km", a.RadiusKm),
			truncateString(strings.Join(a.Aliases, ", "), 30),
		)
	}

	return t.String(), nil
}

func (f *TableFormatter) FormatArea(area geo.Area, adjacent []geo.Area) (string, error) {
	names := make([]string, len(adjacent))
	for i, a := range adjacent {
		names[i] = a.Name
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.headerStyle
			}
			return f.cellStyle
		})

	t.Row("Area", area.Name)
	t.Row("Borough", area.Borough)
	t.Row("Center", formatCoord(area.Center))
	t.Row("Radius", fmt.Sprintf("%.1f km", area.RadiusKm))
	t.Row("Aliases", strings.Join(area.Aliases, ", "))
	t.Row("Nearby", strings.Join(names, " → "))

	return t.String(), nil
}

func (f *TableFormatter) FormatCacheStatus(status aggregator.Status) (string, error) {
	summary := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.headerStyle
			}
			return f.cellStyle
		})

	refreshed := "never"
	if !status.RefreshedAt.IsZero() {
		refreshed = fmt.Sprintf("%s (%s ago)", status.RefreshedAt.Format(time.RFC3339), time.Duration(status.AgeSeconds*float64(time.Second)).Round(time.Second))
	}
	summary.Row("Events", fmt.Sprintf("%d", status.Size))
	summary.Row("Refreshed", refreshed)
	summary.Row("TTL", time.Duration(status.TTLSeconds*float64(time.Second)).String())
	summary.Row("Fresh", fmt.Sprintf("%t", status.Fresh))
	summary.Row("Cycles", fmt.Sprintf("%d", status.Cycles))

	if len(status.Sources) == 0 {
		return summary.String(), nil
	}

	sources := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row != table.HeaderRow && col == 5 && status.Sources[row].LastError != "" {
				return f.badStyle
			}
			return f.rows(row, col)
		}).
		Headers("Source", "Weight", "Last count", "Empty run", "Fetches", "Last error")

	for _, h := range status.Sources {
		sources.Row(
			h.Name,
			fmt.Sprintf("%.2f", h.Weight),
			fmt.Sprintf("%d", h.LastCount),
			fmt.Sprintf("%d", h.ConsecutiveEmpty),
			fmt.Sprintf("%d/%d", h.Fetches-h.Failures, h.Fetches),
			truncateString(h.LastError, 40),
		)
	}

	return summary.String() + "\n" + sources.String(), nil
}

func formatCoord(c geo.Coord) string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
