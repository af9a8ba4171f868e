package sentiment

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	bullishStyle = cellStyle.Foreground(lipgloss.Color("#10B981"))
	bearishStyle = cellStyle.Foreground(lipgloss.Color("#EF4444"))
	mutedStyle   = cellStyle.Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))
)

func labelStyle(label string) lipgloss.Style {
	switch label {
	case Bullish:
		return bullishStyle
	case Bearish:
		return bearishStyle
	case NoData:
		return mutedStyle
	default:
		return cellStyle
	}
}

// Render formats the summary as a bordered table.
func Render(s *Summary) string {
	var b strings.Builder

	title := "Sentiment Analysis"
	if s.Timestamp != "" {
		title += " · " + s.Timestamp
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if !s.Success {
		msg := "Analyzer reported failure"
		if s.Error != "" {
			msg += ": " + s.Error
		}
		b.WriteString(errorStyle.Render(msg))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(s.Scores))
	for _, sc := range s.Scores {
		rows = append(rows, []string{
			sc.Ticker,
			sc.Label,
			sc.Compound.StringFixed(4),
			sc.Positive.StringFixed(4),
			sc.Negative.StringFixed(4),
			sc.Neutral.StringFixed(4),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))).
		Headers("TICKER", "SENTIMENT", "COMPOUND", "POSITIVE", "NEGATIVE", "NEUTRAL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(s.Scores) {
				return labelStyle(s.Scores[row].Label)
			}
			return cellStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}
