package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/internal/conversation"
	"github.com/marketmind-ai/marketmind/internal/styles"
)

// renderMessage renders one chat message with its author label. Assistant
// content goes through the markdown renderer; user content is shown verbatim.
func renderMessage(msg conversation.ChatMessage, registry *agents.Registry, width int) string {
	var sb strings.Builder

	switch msg.Role {
	case conversation.RoleUser:
		sb.WriteString(styles.UserLabel.Render("You"))
		sb.WriteString("\n")
	case conversation.RoleAssistant:
		sb.WriteString(styles.AssistantLabel.Render(authorLabel(msg.AgentID, registry)))
		sb.WriteString("\n")
	}

	content := msg.Content
	if msg.Role == conversation.RoleAssistant && content != "" && !msg.Streaming {
		if rendered, err := renderMarkdown(content, width-4); err == nil {
			content = strings.TrimSpace(rendered)
		}
	}

	if msg.Streaming {
		content += styles.StreamingCursor.Render("▊")
	}

	switch msg.Role {
	case conversation.RoleUser:
		sb.WriteString(styles.UserMessage.Width(width - 2).Render(content))
	case conversation.RoleAssistant:
		sb.WriteString(styles.AssistantMessage.Width(width - 2).Render(content))
	}

	return sb.String()
}

func authorLabel(agentID string, registry *agents.Registry) string {
	if registry != nil {
		if def, ok := registry.Lookup(agentID); ok {
			return def.Icon + " " + def.DisplayName
		}
	}
	if agentID != "" {
		return agentID
	}
	return "Assistant"
}

// renderMarkdown renders markdown content for the terminal.
func renderMarkdown(content string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}
	return r.Render(content)
}
