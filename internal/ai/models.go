package ai

import "sort"

// ModelInfo holds the context window and list prices of a hosted model.
// Prices are indicative and only feed debug-level cost estimates.
type ModelInfo struct {
	Name          string
	ContextTokens int
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"deepseek-chat": {
		Name:          "deepseek-chat",
		ContextTokens: 64000,
		InputPerK:     0.00027,
		OutputPerK:    0.0011,
	},
	"deepseek-reasoner": {
		Name:          "deepseek-reasoner",
		ContextTokens: 64000,
		InputPerK:     0.00055,
		OutputPerK:    0.00219,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// Models returns the catalog sorted by name.
func Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
