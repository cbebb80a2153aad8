package qa

import "strings"

// minContextChars is the context length below which confidence is dampened.
// Very short context means the model had little to ground its answer in.
const minContextChars = 50

// hedgePhrases indicate the model could not answer from the context.
var hedgePhrases = []string{
	"i don't know",
	"cannot",
	"unclear",
	"insufficient information",
}

// EstimateConfidence scores an answer heuristically in [0, 1].
//
// Length is used as a proxy for substance: very short answers score low,
// hedging answers score lower still, and longer answers score progressively
// higher. Thin retrieval context dampens the score.
func EstimateConfidence(answer string, contextChars int) float64 {
	trimmed := strings.TrimSpace(answer)

	var score float64
	switch {
	case len(trimmed) < 10:
		score = 0.1
	case containsHedge(trimmed):
		score = 0.3
	case len(trimmed) > 200:
		score = 0.9
	case len(trimmed) > 100:
		score = 0.8
	case len(trimmed) > 50:
		score = 0.7
	default:
		score = 0.6
	}

	if contextChars < minContextChars {
		score *= 0.7
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func containsHedge(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range hedgePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
