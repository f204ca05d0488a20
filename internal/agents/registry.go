// Package agents holds the fixed agent registry and the per-agent state
// machine driven by interpreted stream signals.
package agents

import "strings"

// Category distinguishes the coordinating root agent from specialists.
type Category string

const (
	// CategoryRoot is the top-level coordinator whose output bounds a turn.
	CategoryRoot Category = "root"
	// CategorySub is a specialist invoked by the root agent via tool calls.
	CategorySub Category = "sub"
)

// Known agent ids. These are the ids the backend authors frames with; the
// set is fixed per deployment.
const (
	RootAgentID      = "root_agent"
	NewsAgentID      = "news_analyst_agent"
	MarketAgentID    = "market_analyst_agent"
	FinancialAgentID = "financial_analyst_agent"
	// The backend registers the risk analyst under this misspelled id, so the
	// client has to match it as-is.
	RiskAgentID = "risk_analyst_anget"
)

// UserAuthor is the author value on frames that begin a new user turn.
const UserAuthor = "user"

// Definition describes one agent: identity, display attributes, declared
// tool names, routing-hint keywords, and the session state key its final
// output lands under.
type Definition struct {
	ID          string
	DisplayName string
	Icon        string
	Category    Category
	Tools       []string
	Keywords    []string
	OutputKey   string
}

// Defaults returns the deployed agent roster: the coordinator plus the four
// analyst specialists it delegates to.
func Defaults() []Definition {
	return []Definition{
		{
			ID:          RootAgentID,
			DisplayName: "Coordinator",
			Icon:        "🧭",
			Category:    CategoryRoot,
			Tools:       []string{"tool_now_kst", "preload_memory"},
			Keywords:    []string{"summary", "overview", "report"},
			OutputKey:   "root_agent_output",
		},
		{
			ID:          NewsAgentID,
			DisplayName: "News Analyst",
			Icon:        "📰",
			Category:    CategorySub,
			Tools:       []string{NewsAgentID},
			Keywords:    []string{"news", "article", "headline", "press"},
			OutputKey:   "news_analyst_output",
		},
		{
			ID:          MarketAgentID,
			DisplayName: "Market Analyst",
			Icon:        "📈",
			Category:    CategorySub,
			Tools:       []string{MarketAgentID},
			Keywords:    []string{"market", "price", "technical", "chart", "volume"},
			OutputKey:   "market_analyst_output",
		},
		{
			ID:          FinancialAgentID,
			DisplayName: "Financial Analyst",
			Icon:        "💰",
			Category:    CategorySub,
			Tools:       []string{FinancialAgentID},
			Keywords:    []string{"financial", "finance", "earnings", "statement", "revenue"},
			OutputKey:   "financial_analyst_output",
		},
		{
			ID:          RiskAgentID,
			DisplayName: "Risk Analyst",
			Icon:        "⚖️",
			Category:    CategorySub,
			Tools:       []string{RiskAgentID},
			Keywords:    []string{"risk", "backtest", "volatility", "drawdown"},
			OutputKey:   "risk_analyst_output",
		},
	}
}

// Registry is an immutable index over a set of agent definitions.
type Registry struct {
	defs   []Definition
	byID   map[string]int
	byTool map[string]string
}

// NewRegistry indexes the given definitions, preserving registration order.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{
		defs:   make([]Definition, len(defs)),
		byID:   make(map[string]int, len(defs)),
		byTool: make(map[string]string),
	}
	copy(r.defs, defs)
	for i, def := range r.defs {
		r.byID[def.ID] = i
		for _, tool := range def.Tools {
			r.byTool[tool] = def.ID
		}
	}
	return r
}

// Definitions returns the definitions in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Lookup returns the definition for an agent id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Known reports whether id is a registered agent.
func (r *Registry) Known(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Root returns the root-category agent.
func (r *Registry) Root() Definition {
	for _, def := range r.defs {
		if def.Category == CategoryRoot {
			return def
		}
	}
	return Definition{}
}

// ResolveTool maps a tool name to the agent it belongs to. An agent id used
// directly as a tool name resolves to that agent.
func (r *Registry) ResolveTool(name string) (string, bool) {
	if _, ok := r.byID[name]; ok {
		return name, true
	}
	id, ok := r.byTool[name]
	return id, ok
}

// Hint picks the most relevant agent for a user turn by keyword match. It is
// a display hint only: routing is decided server-side, and the hint never
// affects which agents actually run. Falls back to the root agent.
func (r *Registry) Hint(text string) string {
	lower := strings.ToLower(text)
	best := r.Root().ID
	bestScore := 0
	for _, def := range r.defs {
		score := 0
		for _, kw := range def.Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = def.ID
			bestScore = score
		}
	}
	return best
}
