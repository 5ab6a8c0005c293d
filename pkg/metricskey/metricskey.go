package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsReviewsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_reviews_succeeded",
		Help:         "stats_reviews_succeeded provides total reviews completed",
		RequiredTags: []string{"agent"},
	}

	StatsReviewsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_reviews_failed",
		Help:         "stats_reviews_failed provides total reviews failed",
		RequiredTags: []string{"agent"},
	}

	StatsReviewsIncomplete = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_reviews_incomplete",
		Help:         "stats_reviews_incomplete provides total reviews that ran out of iterations",
		RequiredTags: []string{"agent"},
	}

	StatsReviewParseErrors = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_review_parse_errors",
		Help:         "stats_review_parse_errors provides total malformed structured review responses",
		RequiredTags: []string{"agent"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	PerfReviewCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_review_call",
		Help:         "perf_review_call provides duration of review call",
		RequiredTags: []string{"agent"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
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
