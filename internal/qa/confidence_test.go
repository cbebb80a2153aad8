package qa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateConfidence(t *testing.T) {
	longContext := 500

	tests := []struct {
		name        string
		answer      string
		contextLen  int
		want        float64
	}{
		{
			name:       "very short answer",
			answer:     "Yes.",
			contextLen: longContext,
			want:       0.1,
		},
		{
			name:       "hedging answer",
			answer:     "I don't know based on the available documents.",
			contextLen: longContext,
			want:       0.3,
		},
		{
			name:       "hedge detected case insensitively",
			answer:     "The document is UNCLEAR about the deadline for this project.",
			contextLen: longContext,
			want:       0.3,
		},
		{
			name:       "cannot counts as a hedge",
			answer:     "This question cannot be answered from the provided material.",
			contextLen: longContext,
			want:       0.3,
		},
		{
			name:       "medium short answer",
			answer:     "The deadline is next Friday.",
			contextLen: longContext,
			want:       0.6,
		},
		{
			name:       "answer just over fifty characters",
			answer:     strings.Repeat("a", 60),
			contextLen: longContext,
			want:       0.7,
		},
		{
			name:       "answer over one hundred characters",
			answer:     strings.Repeat("a", 150),
			contextLen: longContext,
			want:       0.8,
		},
		{
			name:       "long answer",
			answer:     strings.Repeat("a", 250),
			contextLen: longContext,
			want:       0.9,
		},
		{
			name:       "thin context dampens score",
			answer:     strings.Repeat("a", 250),
			contextLen: 10,
			want:       0.9 * 0.7,
		},
		{
			name:       "whitespace is trimmed before measuring",
			answer:     "   Yes.   ",
			contextLen: longContext,
			want:       0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateConfidence(tt.answer, tt.contextLen)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}
