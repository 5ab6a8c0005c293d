package metricskey

import (
	"sort"
	"testing"

	"github.com/effective-security/metrics"
	"github.com/stretchr/testify/assert"
)

func TestMetricsDefinitions(t *testing.T) {
	allMetrics := []*metrics.Describe{
		&PerfReviewCall,
		&StatsLLMBytesReceived,
		&StatsLLMBytesSent,
		&StatsLLMInputTokens,
		&StatsLLMMessagesSent,
		&StatsLLMOutputTokens,
		&StatsLLMTotalTokens,
		&StatsReviewParseErrors,
		&StatsReviewsFailed,
		&StatsReviewsIncomplete,
		&StatsReviewsSucceeded,
		&StatsToolCallsFailed,
		&StatsToolCallsNotFound,
		&StatsToolCallsSucceeded,
	}

	for _, m := range allMetrics {
		assert.NotEmpty(t, m.Name, "Metric name should not be empty")
		assert.NotEmpty(t, m.Help, "Metric help text should not be empty")
		assert.NotEmpty(t, m.RequiredTags, "Metric should have required tags")
	}

	assert.Equal(t, len(allMetrics), len(Metrics), "Metrics slice should contain all defined metrics")

	isSorted := sort.SliceIsSorted(Metrics, func(i, j int) bool {
		return Metrics[i].Name < Metrics[j].Name
	})
	assert.True(t, isSorted, "Metrics slice should be sorted by name")

	seen := make(map[string]bool)
	for _, m := range Metrics {
		assert.False(t, seen[m.Name], "Metric name should be unique: %s", m.Name)
		seen[m.Name] = true
	}

	t.Run("LLM metrics have agent and model tags", func(t *testing.T) {
		llmMetrics := []*metrics.Describe{
			&StatsLLMMessagesSent,
			&StatsLLMBytesSent,
			&StatsLLMBytesReceived,
			&StatsLLMInputTokens,
			&StatsLLMOutputTokens,
			&StatsLLMTotalTokens,
		}
		for _, m := range llmMetrics {
			assert.Equal(t, []string{"agent", "model"}, m.RequiredTags, m.Name)
		}
	})

	t.Run("tool metrics have tool tag", func(t *testing.T) {
		toolMetrics := []*metrics.Describe{
			&StatsToolCallsSucceeded,
			&StatsToolCallsFailed,
			&StatsToolCallsNotFound,
		}
		for _, m := range toolMetrics {
			assert.Equal(t, []string{"tool"}, m.RequiredTags, m.Name)
		}
	})
}
