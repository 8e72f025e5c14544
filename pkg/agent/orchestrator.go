// Package agent coordinates one chat turn: bounded history, a model call
// with the task tool registry, sequential tool execution under the caller's
// identity, and persistence of the exchange.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/pkg/domain"
	"github.com/taskdeck/taskdeck/pkg/tools"
)

// MaxUserMessageLength bounds a single chat message, in characters.
const MaxUserMessageLength = 10000

// DefaultTurnTimeout is the wall-clock budget for one whole turn: the model
// call plus all tool executions combined.
const DefaultTurnTimeout = 30 * time.Second

const systemPrompt = `You are a task management assistant. You help the user ` +
	`manage their to-do list using the provided tools. Use the tools to add, ` +
	`list, update, complete, or delete tasks when the user asks; answer ` +
	`directly when no task change is needed. Be concise.`

// ConversationStore resolves and creates conversations, scoped to an owner.
type ConversationStore interface {
	Create(ctx context.Context, owner uuid.UUID) (*domain.Conversation, error)
	Get(ctx context.Context, id, owner uuid.UUID) (*domain.Conversation, error)
}

// MessageStore persists and loads conversation messages in sequence order.
type MessageStore interface {
	Append(ctx context.Context, conversationID uuid.UUID, role domain.Role, content string) (*domain.Message, error)
	ListBySeq(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
}

// ToolExecution records one tool call made during a turn, for the client.
type ToolExecution struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
	Result    any             `json:"result"`
}

// TurnResult is the outcome of one successful chat turn.
type TurnResult struct {
	ConversationID uuid.UUID       `json:"conversation_id"`
	Response       string          `json:"response"`
	ToolCalls      []ToolExecution `json:"tool_calls"`
}

// Config holds orchestrator tuning.
type Config struct {
	TurnTimeout   time.Duration
	HistoryBudget int
}

// Orchestrator runs chat turns. It is stateless across requests: everything
// a turn needs is the verified owner, the optional conversation id, and the
// shared durable stores.
type Orchestrator struct {
	model   Model
	invoker *tools.Invoker
	convs   ConversationStore
	msgs    MessageStore
	logger  *slog.Logger
	config  Config
}

// NewOrchestrator creates an orchestrator. Zero config values fall back to
// the defaults.
func NewOrchestrator(model Model, invoker *tools.Invoker, convs ConversationStore, msgs MessageStore, logger *slog.Logger, config Config) *Orchestrator {
	if config.TurnTimeout <= 0 {
		config.TurnTimeout = DefaultTurnTimeout
	}
	if config.HistoryBudget <= 0 {
		config.HistoryBudget = DefaultHistoryBudget
	}
	return &Orchestrator{
		model:   model,
		invoker: invoker,
		convs:   convs,
		msgs:    msgs,
		logger:  logger,
		config:  config,
	}
}

// Turn runs one chat turn for the owner. The user message is persisted
// before the model is involved, so it survives any later failure. Tool
// calls execute sequentially; a tool error is fed back to the model as the
// tool's result rather than aborting the turn. Nothing here retries: a
// failed model call, a failed tool, or an expired timeout surfaces once.
func (o *Orchestrator) Turn(ctx context.Context, owner uuid.UUID, conversationID *uuid.UUID, message string) (*TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", domain.ErrValidation)
	}
	if len([]rune(message)) > MaxUserMessageLength {
		return nil, fmt.Errorf("%w: message exceeds maximum length of %d characters", domain.ErrValidation, MaxUserMessageLength)
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.TurnTimeout)
	defer cancel()

	conv, err := o.resolveConversation(ctx, owner, conversationID)
	if err != nil {
		return nil, o.turnError(ctx, err)
	}

	if _, err := o.msgs.Append(ctx, conv.ID, domain.RoleUser, message); err != nil {
		return nil, o.turnError(ctx, err)
	}

	history, err := o.msgs.ListBySeq(ctx, conv.ID)
	if err != nil {
		return nil, o.turnError(ctx, err)
	}
	history = TruncateHistory(history, o.config.HistoryBudget)

	reqMsgs := make([]ChatMessage, 0, len(history)+1)
	reqMsgs = append(reqMsgs, ChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		reqMsgs = append(reqMsgs, ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	resp, err := o.model.Complete(ctx, ChatRequest{
		Messages: reqMsgs,
		Tools:    o.invoker.Registry().ToOpenAIFormat(),
	})
	if err != nil {
		return nil, o.turnError(ctx, err)
	}

	assistant := resp.Choices[0].Message
	executions := []ToolExecution{}
	reply := assistant.Content

	if len(assistant.ToolCalls) > 0 {
		reqMsgs = append(reqMsgs, assistant)

		for _, tc := range assistant.ToolCalls {
			if ctx.Err() != nil {
				return nil, o.turnError(ctx, ctx.Err())
			}

			args := json.RawMessage(tc.Function.Arguments)
			result, invErr := o.invoker.Invoke(ctx, owner, tc.Function.Name, args)
			if invErr != nil {
				// Feed the error back as the tool's result; the model decides
				// how to proceed.
				result = map[string]string{"error": invErr.Error()}
				o.logger.Warn("tool call failed",
					"tool", tc.Function.Name,
					"error", invErr,
				)
			}

			executions = append(executions, ToolExecution{
				Tool:      tc.Function.Name,
				Arguments: args,
				Result:    result,
			})

			content, err := json.Marshal(result)
			if err != nil {
				return nil, o.turnError(ctx, err)
			}
			reqMsgs = append(reqMsgs, ChatMessage{
				Role:       "tool",
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
				Content:    string(content),
			})
		}

		final, err := o.model.Complete(ctx, ChatRequest{Messages: reqMsgs})
		if err != nil {
			return nil, o.turnError(ctx, err)
		}
		reply = final.Choices[0].Message.Content
	}

	if _, err := o.msgs.Append(ctx, conv.ID, domain.RoleAssistant, reply); err != nil {
		return nil, o.turnError(ctx, err)
	}

	return &TurnResult{
		ConversationID: conv.ID,
		Response:       reply,
		ToolCalls:      executions,
	}, nil
}

// resolveConversation loads the owner's conversation or creates a fresh one.
// An unknown or foreign id falls back to a new conversation: the not-found
// answer is never distinguishable from "someone else owns it".
func (o *Orchestrator) resolveConversation(ctx context.Context, owner uuid.UUID, id *uuid.UUID) (*domain.Conversation, error) {
	if id != nil {
		conv, err := o.convs.Get(ctx, *id, owner)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, domain.ErrConversationNotFound) {
			return nil, err
		}
	}
	return o.convs.Create(ctx, owner)
}

// turnError maps a deadline expiry to the turn timeout error; anything else
// passes through unchanged.
func (o *Orchestrator) turnError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrTurnTimeout
	}
	return err
}
