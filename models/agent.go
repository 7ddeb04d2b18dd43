package models

type AgentMessage struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ToolInvocation records one tool the counsellor ran during a turn.
type ToolInvocation struct {
	ToolName string         `json:"toolName"`
	Input    map[string]any `json:"input"`
	Output   string         `json:"output"`
}

type AgentRequest struct {
	Messages []AgentMessage `json:"messages"`
}

type AgentResponse struct {
	AssistantText   string           `json:"assistantText"`
	ToolInvocations []ToolInvocation `json:"toolInvocations"`
	Messages        []AgentMessage   `json:"messages"`
	Error           bool             `json:"error,omitempty"`
}
