package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/pkg/domain"
)

// TaskStore is the owner-scoped task persistence the invoker dispatches to.
// Implementations must condition every mutation on id AND owner in a single
// statement so cross-owner access surfaces as not found.
type TaskStore interface {
	Create(ctx context.Context, task *domain.Task) error
	ListByOwner(ctx context.Context, owner uuid.UUID, status domain.StatusFilter, limit int) ([]domain.Task, error)
	Update(ctx context.Context, owner uuid.UUID, id int64, title, description *string) (*domain.Task, error)
	Complete(ctx context.Context, owner uuid.UUID, id int64) (*domain.Task, error)
	Delete(ctx context.Context, owner uuid.UUID, id int64) error
}

// Invoker executes the closed set of task operations under a caller's
// verified identity. The owner is always injected by the caller of Invoke,
// never read from the model-supplied arguments.
type Invoker struct {
	tasks    TaskStore
	registry *Registry
}

// NewInvoker creates an invoker with the fixed task tool registry.
func NewInvoker(tasks TaskStore) *Invoker {
	r := NewRegistry()
	r.MustRegister(Definition{
		Name:        "add_task",
		Description: "Create a new task for the current user.",
		Parameters: ObjectSchema(map[string]Property{
			"title":       {Type: "string", Description: "Task title", MinLength: 1, MaxLength: domain.MaxTitleLength},
			"description": StringProperty("Optional longer description"),
		}, "title"),
	})
	r.MustRegister(Definition{
		Name:        "list_tasks",
		Description: "List the current user's tasks, newest first.",
		Parameters: ObjectSchema(map[string]Property{
			"status": StringEnumProperty("Filter by completion status", "all", "pending", "completed"),
		}),
	})
	r.MustRegister(Definition{
		Name:        "update_task",
		Description: "Update a task's title and/or description. At least one field is required.",
		Parameters: ObjectSchema(map[string]Property{
			"task_id":     IntProperty("ID of the task to update"),
			"title":       {Type: "string", Description: "New title", MinLength: 1, MaxLength: domain.MaxTitleLength},
			"description": StringProperty("New description"),
		}, "task_id"),
	})
	r.MustRegister(Definition{
		Name:        "complete_task",
		Description: "Mark a task as completed. Completing an already completed task is not an error.",
		Parameters: ObjectSchema(map[string]Property{
			"task_id": IntProperty("ID of the task to complete"),
		}, "task_id"),
	})
	r.MustRegister(Definition{
		Name:        "delete_task",
		Description: "Permanently delete a task.",
		Parameters: ObjectSchema(map[string]Property{
			"task_id": IntProperty("ID of the task to delete"),
		}, "task_id"),
	})

	return &Invoker{tasks: tasks, registry: r}
}

// Registry exposes the tool definitions for the model request.
func (inv *Invoker) Registry() *Registry {
	return inv.registry
}

// Invoke validates the arguments for the named tool and dispatches to the
// task store under the given owner. The result is a JSON-marshalable value;
// callers turn errors into {"error": ...} objects for the model.
func (inv *Invoker) Invoke(ctx context.Context, owner uuid.UUID, name string, args json.RawMessage) (any, error) {
	if _, ok := inv.registry.Get(name); !ok {
		return nil, fmt.Errorf("%w: unknown tool %q", domain.ErrValidation, name)
	}

	switch name {
	case "add_task":
		return inv.addTask(ctx, owner, args)
	case "list_tasks":
		return inv.listTasks(ctx, owner, args)
	case "update_task":
		return inv.updateTask(ctx, owner, args)
	case "complete_task":
		return inv.completeTask(ctx, owner, args)
	case "delete_task":
		return inv.deleteTask(ctx, owner, args)
	}
	return nil, fmt.Errorf("%w: unknown tool %q", domain.ErrValidation, name)
}

type addTaskArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (inv *Invoker) addTask(ctx context.Context, owner uuid.UUID, raw json.RawMessage) (any, error) {
	var args addTaskArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := domain.ValidateTitle(args.Title); err != nil {
		return nil, err
	}

	task := &domain.Task{
		OwnerID:     owner,
		Title:       strings.TrimSpace(args.Title),
		Description: args.Description,
	}
	if err := inv.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

type listTasksArgs struct {
	Status string `json:"status"`
}

func (inv *Invoker) listTasks(ctx context.Context, owner uuid.UUID, raw json.RawMessage) (any, error) {
	var args listTasksArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	status := domain.StatusFilter(args.Status)
	if args.Status == "" {
		status = domain.StatusAll
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be 'all', 'pending', or 'completed'", domain.ErrValidation)
	}

	list, err := inv.tasks.ListByOwner(ctx, owner, status, domain.MaxTaskListSize)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tasks": list, "count": len(list)}, nil
}

type updateTaskArgs struct {
	TaskID      *int64  `json:"task_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (inv *Invoker) updateTask(ctx context.Context, owner uuid.UUID, raw json.RawMessage) (any, error) {
	var args updateTaskArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.TaskID == nil {
		return nil, fmt.Errorf("%w: task_id is required", domain.ErrValidation)
	}
	if args.Title == nil && args.Description == nil {
		return nil, fmt.Errorf("%w: at least one of title or description is required", domain.ErrValidation)
	}
	if args.Title != nil {
		if err := domain.ValidateTitle(*args.Title); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*args.Title)
		args.Title = &trimmed
	}

	return inv.tasks.Update(ctx, owner, *args.TaskID, args.Title, args.Description)
}

type taskIDArgs struct {
	TaskID *int64 `json:"task_id"`
}

func (inv *Invoker) completeTask(ctx context.Context, owner uuid.UUID, raw json.RawMessage) (any, error) {
	var args taskIDArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.TaskID == nil {
		return nil, fmt.Errorf("%w: task_id is required", domain.ErrValidation)
	}
	return inv.tasks.Complete(ctx, owner, *args.TaskID)
}

func (inv *Invoker) deleteTask(ctx context.Context, owner uuid.UUID, raw json.RawMessage) (any, error) {
	var args taskIDArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.TaskID == nil {
		return nil, fmt.Errorf("%w: task_id is required", domain.ErrValidation)
	}
	if err := inv.tasks.Delete(ctx, owner, *args.TaskID); err != nil {
		return nil, err
	}
	return map[string]any{"task_id": *args.TaskID, "status": "deleted"}, nil
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed tool arguments", domain.ErrValidation)
	}
	return nil
}
