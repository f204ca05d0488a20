package conversation

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/sdk/engine"
)

// dedupeWindow is how close two timestamps must be for identical messages to
// be considered the same entry persisted twice.
const dedupeWindow = 2 * time.Second

// topicKeywords classify orphaned session-state strings to the analyst that
// plausibly produced them.
var topicKeywords = []struct {
	keyword string
	agentID string
}{
	{"news", agents.NewsAgentID},
	{"finance", agents.FinancialAgentID},
	{"financial", agents.FinancialAgentID},
	{"technical", agents.MarketAgentID},
	{"market", agents.MarketAgentID},
	{"backtest", agents.RiskAgentID},
	{"risk", agents.RiskAgentID},
	{"report", agents.RootAgentID},
}

// ReconstructHistory rebuilds the conversation from a persisted session: the
// event history in original order, plus any analyst output stranded in the
// session state map that never made it into an event, deduplicated and
// ordered by timestamp.
func ReconstructHistory(sess *engine.Session, registry *agents.Registry) []ChatMessage {
	if sess == nil {
		return nil
	}

	var msgs []ChatMessage
	for _, ev := range sess.Events {
		text := ev.Text()
		if text == "" {
			continue
		}
		role, agentID := classifyAuthor(ev, registry)
		msgs = append(msgs, ChatMessage{
			ID:        uuid.NewString(),
			Content:   text,
			Role:      role,
			AgentID:   agentID,
			Timestamp: timeFromUnix(ev.Timestamp),
		})
	}

	msgs = append(msgs, stateOrphans(sess, msgs)...)

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})

	return collapseDuplicates(msgs)
}

// classifyAuthor maps an event to a message role. An absent author counts as
// user even when the content role hints otherwise; persisted sessions were
// written under that rule, so reclassifying here would fork the history a
// user sees before and after a reload.
func classifyAuthor(ev engine.Event, registry *agents.Registry) (Role, string) {
	switch {
	case ev.Author == agents.UserAuthor:
		return RoleUser, ""
	case registry.Known(ev.Author):
		return RoleAssistant, ev.Author
	case ev.Author == "":
		return RoleUser, ""
	default:
		return RoleAssistant, ""
	}
}

// stateOrphans scans the session's opaque state map for string values that
// never surfaced in the event history and turns them into assistant
// messages, attributed by topic keyword.
func stateOrphans(sess *engine.Session, existing []ChatMessage) []ChatMessage {
	if len(sess.State) == 0 {
		return nil
	}

	ts := sess.UpdateTime
	if ts.IsZero() {
		ts = sess.CreateTime
	}

	var orphans []ChatMessage
	gjson.ParseBytes(sess.State).ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			return true
		}
		text := strings.TrimSpace(value.String())
		if text == "" || containsVerbatim(existing, text) {
			return true
		}
		orphans = append(orphans, ChatMessage{
			ID:        uuid.NewString(),
			Content:   text,
			Role:      RoleAssistant,
			AgentID:   classifyTopic(key.String(), text),
			Timestamp: ts,
		})
		return true
	})
	return orphans
}

func containsVerbatim(msgs []ChatMessage, text string) bool {
	for _, m := range msgs {
		if strings.Contains(m.Content, text) {
			return true
		}
	}
	return false
}

// classifyTopic attributes a stranded state value by substring match against
// the topic keywords, checking the state key before the content.
func classifyTopic(key, text string) string {
	for _, probe := range []string{strings.ToLower(key), strings.ToLower(text)} {
		for _, tk := range topicKeywords {
			if strings.Contains(probe, tk.keyword) {
				return tk.agentID
			}
		}
	}
	return ""
}

// collapseDuplicates merges near-duplicates: same role, identical trimmed
// content, timestamps within the dedupe window. The first occurrence wins.
func collapseDuplicates(msgs []ChatMessage) []ChatMessage {
	var out []ChatMessage
	for _, m := range msgs {
		dup := false
		for _, kept := range out {
			if kept.Role == m.Role &&
				strings.TrimSpace(kept.Content) == strings.TrimSpace(m.Content) &&
				absDuration(m.Timestamp.Sub(kept.Timestamp)) <= dedupeWindow {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// timeFromUnix converts the runtime's fractional-second timestamps.
func timeFromUnix(ts float64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
