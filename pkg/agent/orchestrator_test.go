package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/pkg/domain"
	"github.com/taskdeck/taskdeck/pkg/tools"
)

// fakeModel returns scripted responses in order and records every request.
type fakeModel struct {
	responses []*ChatResponse
	requests  []ChatRequest
	err       error
}

func (m *fakeModel) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("fakeModel: no scripted response left")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// blockingModel waits out the context, standing in for a slow provider.
type blockingModel struct{}

func (blockingModel) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type memConvStore struct {
	convs map[uuid.UUID]*domain.Conversation
}

func newMemConvStore() *memConvStore {
	return &memConvStore{convs: make(map[uuid.UUID]*domain.Conversation)}
}

func (s *memConvStore) Create(ctx context.Context, owner uuid.UUID) (*domain.Conversation, error) {
	conv := &domain.Conversation{ID: uuid.New(), OwnerID: owner, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.convs[conv.ID] = conv
	return conv, nil
}

func (s *memConvStore) Get(ctx context.Context, id, owner uuid.UUID) (*domain.Conversation, error) {
	conv, ok := s.convs[id]
	if !ok || conv.OwnerID != owner {
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

type memMsgStore struct {
	msgs map[uuid.UUID][]domain.Message
	seq  int64
}

func newMemMsgStore() *memMsgStore {
	return &memMsgStore{msgs: make(map[uuid.UUID][]domain.Message)}
}

func (s *memMsgStore) Append(ctx context.Context, conversationID uuid.UUID, role domain.Role, content string) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.seq++
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Seq:            s.seq,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	s.msgs[conversationID] = append(s.msgs[conversationID], msg)
	return &msg, nil
}

func (s *memMsgStore) ListBySeq(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	return s.msgs[conversationID], nil
}

// stubTaskStore is the minimal task store the invoker needs; only Create is
// expected to run in these tests.
type stubTaskStore struct {
	created []domain.Task
}

func (s *stubTaskStore) Create(ctx context.Context, task *domain.Task) error {
	task.ID = int64(len(s.created) + 1)
	s.created = append(s.created, *task)
	return nil
}

func (s *stubTaskStore) ListByOwner(ctx context.Context, owner uuid.UUID, status domain.StatusFilter, limit int) ([]domain.Task, error) {
	return nil, nil
}

func (s *stubTaskStore) Update(ctx context.Context, owner uuid.UUID, id int64, title, description *string) (*domain.Task, error) {
	return nil, domain.ErrTaskNotFound
}

func (s *stubTaskStore) Complete(ctx context.Context, owner uuid.UUID, id int64) (*domain.Task, error) {
	return nil, domain.ErrTaskNotFound
}

func (s *stubTaskStore) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	return domain.ErrTaskNotFound
}

type turnFixture struct {
	orchestrator *Orchestrator
	model        *fakeModel
	convs        *memConvStore
	msgs         *memMsgStore
	tasks        *stubTaskStore
	owner        uuid.UUID
}

func newTurnFixture(t *testing.T, model Model, config Config) *turnFixture {
	t.Helper()
	f := &turnFixture{
		convs: newMemConvStore(),
		msgs:  newMemMsgStore(),
		tasks: &stubTaskStore{},
		owner: uuid.New(),
	}
	if fm, ok := model.(*fakeModel); ok {
		f.model = fm
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.orchestrator = NewOrchestrator(model, tools.NewInvoker(f.tasks), f.convs, f.msgs, logger, config)
	return f
}

func textResponse(content string) *ChatResponse {
	return &ChatResponse{Choices: []Choice{{Message: ChatMessage{Role: "assistant", Content: content}}}}
}

func toolCallResponse(name, args string) *ChatResponse {
	return &ChatResponse{Choices: []Choice{{
		Message: ChatMessage{
			Role: "assistant",
			ToolCalls: []ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: FunctionCall{Name: name, Arguments: args},
			}},
		},
	}}}
}

func TestTurn_Validation(t *testing.T) {
	f := newTurnFixture(t, &fakeModel{}, Config{})

	tests := []struct {
		name    string
		message string
	}{
		{name: "empty", message: ""},
		{name: "whitespace only", message: "   \n\t  "},
		{name: "too long", message: strings.Repeat("x", MaxUserMessageLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orchestrator.Turn(context.Background(), f.owner, nil, tt.message)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Turn error = %v, want ErrValidation", err)
			}
		})
	}

	if len(f.model.requests) != 0 {
		t.Error("model must not be called for invalid messages")
	}
	if len(f.convs.convs) != 0 {
		t.Error("no conversation should be created for invalid messages")
	}
}

func TestTurn_SimpleReply(t *testing.T) {
	model := &fakeModel{responses: []*ChatResponse{textResponse("Hello back!")}}
	f := newTurnFixture(t, model, Config{})

	result, err := f.orchestrator.Turn(context.Background(), f.owner, nil, "Hello")
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	if result.Response != "Hello back!" {
		t.Errorf("Response = %q, want %q", result.Response, "Hello back!")
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %d, want 0", len(result.ToolCalls))
	}

	// Both sides of the exchange are persisted, user first.
	persisted := f.msgs.msgs[result.ConversationID]
	if len(persisted) != 2 {
		t.Fatalf("persisted messages = %d, want 2", len(persisted))
	}
	if persisted[0].Role != domain.RoleUser || persisted[0].Content != "Hello" {
		t.Errorf("first message = %s %q, want user Hello", persisted[0].Role, persisted[0].Content)
	}
	if persisted[1].Role != domain.RoleAssistant || persisted[1].Content != "Hello back!" {
		t.Errorf("second message = %s %q, want assistant reply", persisted[1].Role, persisted[1].Content)
	}

	// The request carries the system prompt and the tool definitions.
	req := model.requests[0]
	if req.Messages[0].Role != "system" {
		t.Error("first request message must be the system prompt")
	}
	if len(req.Tools) != 5 {
		t.Errorf("tools in request = %d, want 5", len(req.Tools))
	}
}

func TestTurn_ToolCallLoop(t *testing.T) {
	model := &fakeModel{responses: []*ChatResponse{
		toolCallResponse("add_task", `{"title": "buy milk"}`),
		textResponse("Added buy milk to your list."),
	}}
	f := newTurnFixture(t, model, Config{})

	result, err := f.orchestrator.Turn(context.Background(), f.owner, nil, "add buy milk")
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}

	if result.Response != "Added buy milk to your list." {
		t.Errorf("Response = %q", result.Response)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Tool != "add_task" {
		t.Fatalf("ToolCalls = %+v, want one add_task", result.ToolCalls)
	}

	// The tool actually ran under the turn's owner.
	if len(f.tasks.created) != 1 {
		t.Fatalf("created tasks = %d, want 1", len(f.tasks.created))
	}
	if f.tasks.created[0].OwnerID != f.owner {
		t.Error("task owner must be the turn's owner")
	}
	if f.tasks.created[0].Title != "buy milk" {
		t.Errorf("task title = %q, want %q", f.tasks.created[0].Title, "buy milk")
	}

	// The follow-up request carries the tool result and no tool definitions.
	if len(model.requests) != 2 {
		t.Fatalf("model calls = %d, want 2", len(model.requests))
	}
	followUp := model.requests[1]
	if len(followUp.Tools) != 0 {
		t.Error("follow-up request must not offer tools")
	}
	last := followUp.Messages[len(followUp.Messages)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Errorf("last follow-up message = %+v, want the tool result", last)
	}
}

func TestTurn_ToolErrorFedBack(t *testing.T) {
	model := &fakeModel{responses: []*ChatResponse{
		toolCallResponse("add_task", `{"title": ""}`),
		textResponse("The title cannot be empty."),
	}}
	f := newTurnFixture(t, model, Config{})

	result, err := f.orchestrator.Turn(context.Background(), f.owner, nil, "add a task")
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}

	// The turn succeeds; the failure is the tool's result.
	if len(result.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(result.ToolCalls))
	}
	errResult, ok := result.ToolCalls[0].Result.(map[string]string)
	if !ok || errResult["error"] == "" {
		t.Errorf("tool result = %+v, want an error object", result.ToolCalls[0].Result)
	}

	// The model sees the error in the tool message.
	followUp := model.requests[1]
	last := followUp.Messages[len(followUp.Messages)-1]
	if !strings.Contains(last.Content, "title cannot be empty") {
		t.Errorf("tool message content = %q, want the validation error", last.Content)
	}
	if len(f.tasks.created) != 0 {
		t.Error("no task should be created")
	}
}

func TestTurn_ModelFailureKeepsUserMessage(t *testing.T) {
	model := &fakeModel{err: domain.ErrUpstreamUnavailable}
	f := newTurnFixture(t, model, Config{})

	_, err := f.orchestrator.Turn(context.Background(), f.owner, nil, "hello?")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("Turn error = %v, want ErrUpstreamUnavailable", err)
	}

	// The user message was persisted before the model call and survives.
	var all []domain.Message
	for _, msgs := range f.msgs.msgs {
		all = append(all, msgs...)
	}
	if len(all) != 1 {
		t.Fatalf("persisted messages = %d, want just the user message", len(all))
	}
	if all[0].Role != domain.RoleUser {
		t.Errorf("persisted role = %s, want user", all[0].Role)
	}
}

func TestTurn_Timeout(t *testing.T) {
	f := newTurnFixture(t, blockingModel{}, Config{TurnTimeout: 20 * time.Millisecond})

	_, err := f.orchestrator.Turn(context.Background(), f.owner, nil, "hello?")
	if !errors.Is(err, domain.ErrTurnTimeout) {
		t.Fatalf("Turn error = %v, want ErrTurnTimeout", err)
	}

	// No assistant message was persisted.
	for _, msgs := range f.msgs.msgs {
		for _, m := range msgs {
			if m.Role == domain.RoleAssistant {
				t.Error("no assistant message should be persisted on timeout")
			}
		}
	}
}

func TestTurn_ResumesOwnConversation(t *testing.T) {
	model := &fakeModel{responses: []*ChatResponse{
		textResponse("first"),
		textResponse("second"),
	}}
	f := newTurnFixture(t, model, Config{})
	ctx := context.Background()

	first, err := f.orchestrator.Turn(ctx, f.owner, nil, "start")
	if err != nil {
		t.Fatalf("first Turn failed: %v", err)
	}

	second, err := f.orchestrator.Turn(ctx, f.owner, &first.ConversationID, "continue")
	if err != nil {
		t.Fatalf("second Turn failed: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Errorf("conversation = %v, want resumed %v", second.ConversationID, first.ConversationID)
	}

	// The second request replays the prior exchange.
	req := model.requests[1]
	if len(req.Messages) != 4 { // system + user + assistant + user
		t.Errorf("request messages = %d, want 4", len(req.Messages))
	}
}

func TestTurn_ForeignConversationFallsBackToNew(t *testing.T) {
	model := &fakeModel{responses: []*ChatResponse{
		textResponse("theirs"),
		textResponse("yours"),
	}}
	f := newTurnFixture(t, model, Config{})
	ctx := context.Background()

	other := uuid.New()
	theirs, err := f.orchestrator.Turn(ctx, other, nil, "their conversation")
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}

	// Pointing at someone else's conversation silently starts a fresh one.
	result, err := f.orchestrator.Turn(ctx, f.owner, &theirs.ConversationID, "mine now?")
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	if result.ConversationID == theirs.ConversationID {
		t.Error("foreign conversation id must not be resumed")
	}
	if len(f.msgs.msgs[theirs.ConversationID]) != 2 {
		t.Error("the foreign conversation must be untouched")
	}
}
