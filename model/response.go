package model

// Optimization methods reported in OptimizationInfo.Method.
const (
	OptimizationNone               = "none"
	OptimizationTruncation         = "truncation"
	OptimizationSummarization      = "summarization"
	OptimizationFallbackTruncation = "fallback_truncation"
)

// OptimizationInfo describes what history optimization (if any) was applied.
type OptimizationInfo struct {
	WasOptimized          bool   `json:"was_optimized"`
	Reason                string `json:"reason"`
	OriginalMessageCount  int    `json:"original_message_count"`
	OptimizedMessageCount int    `json:"optimized_message_count"`
	MessagesRemoved       int    `json:"messages_removed,omitempty"`
	Method                string `json:"method"`
	// FallbackError records the underlying failure when summarization fell
	// back to truncation. Never surfaced to the caller as an error.
	FallbackError string `json:"fallback_error,omitempty"`
}

// ToolExecutionResult is produced for exactly one ToolCall, success or
// failure, never both.
type ToolExecutionResult struct {
	ToolCallID   string `json:"tool_call_id"`
	FunctionName string `json:"function_name"`
	Result       string `json:"result,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Succeeded reports whether the tool call completed without error.
func (r ToolExecutionResult) Succeeded() bool {
	return r.Error == ""
}

// Response is the result of one orchestrated query. Created once per query,
// immutable afterwards, cached by value.
type Response struct {
	Content              string                `json:"content"`
	Model                string                `json:"model"`
	Provider             string                `json:"provider"`
	Usage                TokenUsage            `json:"usage"`
	ToolCalls            []ToolCall            `json:"tool_calls,omitempty"`
	ToolExecutionResults []ToolExecutionResult `json:"tool_execution_results,omitempty"`
	OptimizedHistory     []Message             `json:"optimized_history"`
	OptimizationInfo     OptimizationInfo      `json:"optimization_info"`
}
