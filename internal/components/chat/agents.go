package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/internal/styles"
)

// RenderAgentPanel renders the per-agent status sidebar from a state
// snapshot. hintID marks the agent the client guessed the turn is about;
// the guess is cosmetic and only affects the marker.
func RenderAgentPanel(snap agents.Snapshot, hintID string, width int) string {
	var rows []string
	rows = append(rows, styles.Header.Render("Agents"))

	for _, a := range snap.Agents {
		glyph := lipgloss.NewStyle().
			Foreground(styles.StatusColor(a.Status)).
			Render(styles.StatusGlyph(a.Status))

		nameStyle := styles.AgentName
		if a.Active {
			nameStyle = styles.AgentNameActive
		}
		name := nameStyle.Render(a.Icon + " " + a.DisplayName)

		marker := " "
		if a.ID == hintID {
			marker = "›"
		}

		rows = append(rows, fmt.Sprintf("%s %s %s", marker, glyph, name))
	}

	if snap.Stats.ActiveCount > 0 {
		rows = append(rows, "")
		rows = append(rows, styles.StatusBar.Render(
			fmt.Sprintf("%d working", snap.Stats.ActiveCount)))
	}

	return styles.AgentPanel.Width(width - 2).Render(strings.Join(rows, "\n"))
}
