package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"counsellor/models"
	"counsellor/services"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxSteps = 5

	MSG_COUNSELLOR_UNAVAILABLE = "I'm having trouble reaching the counsellor right now. Please try again in a moment."
)

// MessagesAPI is the part of the Anthropic client the counsellor uses.
type MessagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type Service struct {
	messages    MessagesAPI
	profiles    *services.ProfileService
	locks       *services.LockService
	tasks       *services.TaskService
	recommender services.Recommender
	maxSteps    int
}

func NewService(
	messages MessagesAPI,
	profiles *services.ProfileService,
	locks *services.LockService,
	tasks *services.TaskService,
	recommender services.Recommender,
	maxSteps int,
) *Service {
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &Service{
		messages:    messages,
		profiles:    profiles,
		locks:       locks,
		tasks:       tasks,
		recommender: recommender,
		maxSteps:    maxSteps,
	}
}

// NewAnthropicMessages returns the messages API of a client for apiKey.
func NewAnthropicMessages(apiKey string) MessagesAPI {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &client.Messages
}

// ProcessMessage answers the latest user message with the student's profile
// and universities in context. Tool calls are run and fed back to the model
// until it answers in text or the step limit is reached.
func (s *Service) ProcessMessage(ctx context.Context, userID string, messages []models.AgentMessage) (*models.AgentResponse, error) {
	log.Printf("[INFO] Starting counsellor message processing for user %s with %d messages", userID, len(messages))

	if strings.TrimSpace(userID) == "" {
		return nil, services.ErrUnauthorized
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", services.ErrInvalidInput)
	}

	var (
		profile      *models.Profile
		universities []models.LockedUniversity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.profiles.GetProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		universities, err = s.locks.ListLocks(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("[ERROR] Failed to load counsellor context for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to load counsellor context: %w", err)
	}

	tools := []AgentTool{
		NewRecommendUniversitiesTool(s.recommender, profile),
		NewAddTaskTool(s.tasks, userID, universities),
	}
	toolSpecs := buildAnthropicToolSpecs(tools)
	systemPrompt := BuildSystemPrompt(profile, universities)

	updatedMessages := make([]models.AgentMessage, len(messages))
	copy(updatedMessages, messages)

	response := &models.AgentResponse{ToolInvocations: []models.ToolInvocation{}}

	for step := 1; step <= s.maxSteps; step++ {
		anthropicMessages := convertToAnthropicMessages(updatedMessages)
		logAnthropicRequest(fmt.Sprintf("step %d", step), anthropicMessages, toolSpecs)

		reply, err := s.messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.ModelClaude4Sonnet20250514,
			MaxTokens: 4096,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages:  anthropicMessages,
			Tools:     toolSpecs,
		})
		if err != nil {
			log.Printf("[ERROR] Failed to call Anthropic API: %v", err)
			response.AssistantText = MSG_COUNSELLOR_UNAVAILABLE
			response.Error = true
			response.Messages = updatedMessages
			return response, nil
		}

		logAnthropicResponse(fmt.Sprintf("step %d", step), reply)

		assistantMsg, toolUses := readReply(reply)
		updatedMessages = append(updatedMessages, assistantMsg)
		if assistantMsg.Content != "" {
			response.AssistantText = assistantMsg.Content
		}

		if len(toolUses) == 0 {
			break
		}

		toolMsg := models.AgentMessage{Role: "tool"}
		for _, toolUse := range toolUses {
			input := string(toolUse.Input)
			if strings.TrimSpace(input) == "" {
				input = "{}"
			}
			log.Printf("[INFO] Executing tool: %s with arguments: %s", toolUse.Name, input)

			result, err := executeTool(ctx, tools, toolUse.Name, input)
			isError := err != nil
			if isError {
				log.Printf("[ERROR] Tool execution failed: %v", err)
				result = fmt.Sprintf("Error: %v", err)
			} else {
				log.Printf("[INFO] Tool execution result: %s", result)
			}

			toolMsg.ToolResults = append(toolMsg.ToolResults, models.ToolResult{
				ToolCallID: toolUse.ID,
				Content:    result,
				IsError:    isError,
			})
			response.ToolInvocations = append(response.ToolInvocations, models.ToolInvocation{
				ToolName: toolUse.Name,
				Input:    decodeArguments(toolUse.Input),
				Output:   result,
			})
		}
		updatedMessages = append(updatedMessages, toolMsg)

		if step == s.maxSteps {
			log.Printf("[WARN] Counsellor reached the step limit of %d for user %s", s.maxSteps, userID)
		}
	}

	response.Messages = updatedMessages
	log.Printf("[INFO] Counsellor message processing completed with %d tool invocations", len(response.ToolInvocations))
	return response, nil
}

func readReply(reply *anthropic.Message) (models.AgentMessage, []anthropic.ToolUseBlock) {
	var text strings.Builder
	toolUses := []anthropic.ToolUseBlock{}

	for _, block := range reply.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			toolUses = append(toolUses, block)
		}
	}

	msg := models.AgentMessage{
		Role:    "assistant",
		Content: text.String(),
	}
	for _, toolUse := range toolUses {
		msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{
			ID:        toolUse.ID,
			Name:      toolUse.Name,
			Arguments: decodeArguments(toolUse.Input),
		})
	}
	return msg, toolUses
}

func decodeArguments(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		log.Printf("[WARN] Failed to decode tool arguments: %v", err)
	}
	return args
}

func convertToAnthropicMessages(messages []models.AgentMessage) []anthropic.MessageParam {
	var anthropicMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			contentBlocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				contentBlocks = append(contentBlocks, anthropic.ContentBlockParamUnion{
					OfText: &anthropic.TextBlockParam{Text: msg.Content},
				})
			}
			for _, toolCall := range msg.ToolCalls {
				arguments := toolCall.Arguments
				if arguments == nil {
					arguments = map[string]any{}
				}
				contentBlocks = append(contentBlocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    toolCall.ID,
						Name:  toolCall.Name,
						Input: arguments,
					},
				})
			}
			if len(contentBlocks) == 0 {
				continue
			}
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(contentBlocks...))
		case "tool":
			toolResultBlocks := []anthropic.ContentBlockParamUnion{}
			for _, result := range msg.ToolResults {
				block := &anthropic.ToolResultBlockParam{
					ToolUseID: result.ToolCallID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: result.Content}},
					},
				}
				if result.IsError {
					block.IsError = anthropic.Bool(true)
				}
				toolResultBlocks = append(toolResultBlocks, anthropic.ContentBlockParamUnion{OfToolResult: block})
			}
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	return anthropicMessages
}

func buildAnthropicToolSpecs(tools []AgentTool) []anthropic.ToolUnionParam {
	var toolSpecs []anthropic.ToolUnionParam

	for _, tool := range tools {
		toolSpecs = append(toolSpecs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name(),
				Description: anthropic.String(tool.Description()),
				InputSchema: tool.GetAnthropicToolSpec(),
			},
		})
	}

	return toolSpecs
}

func executeTool(ctx context.Context, tools []AgentTool, toolName, arguments string) (string, error) {
	for _, tool := range tools {
		if tool.Name() == toolName {
			return tool.Call(ctx, arguments)
		}
	}
	return "", fmt.Errorf("tool %s not found", toolName)
}

func logAnthropicRequest(stage string, messages []anthropic.MessageParam, tools []anthropic.ToolUnionParam) {
	log.Printf("[INFO] Anthropic request (%s): %d messages, %d tools", stage, len(messages), len(tools))
	for i, msg := range messages {
		log.Printf("[INFO]   [%d] Role: %s", i, msg.Role)
	}
}

func logAnthropicResponse(stage string, response *anthropic.Message) {
	log.Printf("[INFO] Anthropic response (%s): model=%s stop_reason=%s blocks=%d",
		stage, response.Model, response.StopReason, len(response.Content))

	for i, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			log.Printf("[INFO]   [%d] Text: %s", i, block.Text)
		case anthropic.ToolUseBlock:
			log.Printf("[INFO]   [%d] Tool Use: ID=%s, Name=%s, Input=%s", i, block.ID, block.Name, string(block.Input))
		}
	}
}
