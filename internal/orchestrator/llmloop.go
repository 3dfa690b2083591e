// ABOUTME: The LLM tool-calling loop: model round, tool execution, repeat.
// ABOUTME: Tool-level failures feed back to the model; process failures abort.

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/lumen-gateway/internal/jsonrpc"
	"github.com/2389/lumen-gateway/internal/llm"
)

const systemPrompt = `You are a lighting assistant controlling LIFX smart lights.
Use the provided tools to inspect and change lights as the user asks.
Resolve vague names with resolve_selector before acting when unsure.
Reply with a short confirmation of what you did, or ask for clarification.`

// runChat alternates model completions with tool execution until the model
// produces a final answer or the round budget runs out.
func (o *Orchestrator) runChat(ctx context.Context, w Worker, req Request) (*Result, error) {
	tools, err := w.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	specs := make([]llm.Tool, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, llm.Tool{
			Type: "function",
			Function: llm.ToolSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: req.Message},
	}

	rounds := o.opts.MaxToolRounds
	if req.MaxToolRounds > 0 && req.MaxToolRounds < rounds {
		rounds = req.MaxToolRounds
	}

	res := &Result{}
	for round := 0; round < rounds; round++ {
		msg, usage, err := o.llm.Complete(ctx, messages, specs)
		if err != nil {
			return nil, fmt.Errorf("model round %d: %w", round+1, err)
		}
		if usage != nil {
			res.Usage.PromptTokens += usage.PromptTokens
			res.Usage.CompletionTokens += usage.CompletionTokens
			res.Usage.TotalTokens += usage.TotalTokens
		}

		if len(msg.ToolCalls) == 0 {
			res.Reply = msg.Content
			return res, nil
		}

		messages = append(messages, *msg)
		for _, call := range msg.ToolCalls {
			text, isErr, err := o.executeToolCall(ctx, w, req, call)
			if err != nil {
				return nil, err
			}
			res.ToolCalls = append(res.ToolCalls, ToolCallRecord{
				Name:    call.Function.Name,
				IsError: isErr,
			})
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    text,
			})
		}
	}

	return nil, fmt.Errorf("%w after %d rounds", ErrToolRoundsExceeded, rounds)
}

// executeToolCall runs one model-requested tool. Tool-level failures are
// returned as in-band text with the error flag so the model can react;
// only process-level failures return a non-nil error and abort the request.
func (o *Orchestrator) executeToolCall(ctx context.Context, w Worker, req Request, call llm.ToolCall) (string, bool, error) {
	name := call.Function.Name
	o.logger.Debug("model requested tool",
		"session_id", req.SessionID, "tool", name)

	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("error: arguments for %s are not valid JSON: %v", name, err), true, nil
		}
	}

	if req.Restrictive && !readOnlyTools[name] {
		return fmt.Sprintf("error: %s is not permitted in restrictive mode", name), true, nil
	}

	out, err := w.CallTool(ctx, name, args)
	if err != nil {
		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) {
			// The worker rejected this one call; the process is fine.
			return "error: " + rpcErr.Message, true, nil
		}
		return "", false, err
	}
	if out.IsError {
		return "error: " + out.Text, true, nil
	}
	return out.Text, false, nil
}
