package agent

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nvolkov/auditbot/internal/domain"
)

const systemPrompt = "You are a security testing assistant. You can trigger " +
	"a Jenkins security scan, run an nmap network scan, or submit a mobile " +
	"application package to MobSF. Use a tool when the user asks for one of " +
	"these actions; otherwise answer directly and concisely."

// OpenAIDecider implements Decider using the OpenAI chat completion API
// with function-calling for tool selection.
type OpenAIDecider struct {
	client *openai.Client
	model  string
}

// NewOpenAIDecider creates a decider. Returns nil when apiKey is empty so
// the bridge fails closed.
func NewOpenAIDecider(apiKey, model string) *OpenAIDecider {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIDecider{client: openai.NewClient(apiKey), model: model}
}

// Decide sends the history, the new message and the toolset to the model
// and maps the completion to an Action. The first tool call wins when the
// model requests several.
func (d *OpenAIDecider) Decide(ctx context.Context, history []domain.ChatMessage, message string, tools []ToolSpec) (Action, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    d.model,
		Messages: messages,
		Tools:    toOpenAITools(tools),
	})
	if err != nil {
		return Action{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Action{}, fmt.Errorf("chat completion returned no choices")
	}

	choice := resp.Choices[0].Message
	for _, call := range choice.ToolCalls {
		if call.Type != openai.ToolTypeFunction {
			continue
		}
		arg, err := extractArg(call.Function.Arguments, argName(tools, call.Function.Name))
		if err != nil {
			return Action{}, fmt.Errorf("tool call %s: %w", call.Function.Name, err)
		}
		return Action{Kind: ActionInvokeTool, Tool: call.Function.Name, Arg: arg}, nil
	}
	return Action{Kind: ActionDirectReply, Reply: choice.Content}, nil
}

func toOpenAITools(tools []ToolSpec) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, spec := range tools {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						spec.ArgName: map[string]any{
							"type":        "string",
							"description": spec.ArgHint,
						},
					},
					"required": []string{spec.ArgName},
				},
			},
		}
	}
	return out
}

func argName(tools []ToolSpec, toolName string) string {
	for _, spec := range tools {
		if spec.Name == toolName {
			return spec.ArgName
		}
	}
	return ""
}

func extractArg(rawArgs, argName string) (string, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return "", fmt.Errorf("decode arguments: %w", err)
	}
	if v, ok := args[argName].(string); ok {
		return v, nil
	}
	// Fall back to the first string value when the model renames the field.
	for _, v := range args {
		if sv, ok := v.(string); ok {
			return sv, nil
		}
	}
	return "", fmt.Errorf("no string argument in %q", rawArgs)
}
