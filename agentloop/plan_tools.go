package agentloop

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/martinemde/agentcore/taskplan"
)

// RegisterPlanTools registers the task planning tools on a ToolRegistry.
// The tools close over the provided Scheduler, so every session that
// shares a registry also shares the plan.
func RegisterPlanTools(reg *ToolRegistry, sched *taskplan.Scheduler) {
	registerCreatePlan(reg, sched)
	registerAddTodo(reg, sched)
	registerUpdateTodoStatus(reg, sched)
	registerNextTodo(reg, sched)
	registerListTodos(reg, sched)
}

func registerCreatePlan(reg *ToolRegistry, sched *taskplan.Scheduler) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "create_plan",
			Description: "Create a new task plan. Replaces any existing plan and its todos.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"summary": map[string]interface{}{
						"type":        "string",
						"description": "One-line summary of what the plan accomplishes.",
					},
				},
				"required": []string{"summary"},
			},
		},
		Executor: func(arguments json.RawMessage, env ExecutionEnvironment) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			summary, ok := GetStringArg(args, "summary")
			if !ok || summary == "" {
				return "", fmt.Errorf("summary is required")
			}

			plan := sched.CreatePlan(summary)
			return fmt.Sprintf("Created plan %s: %s", plan.ID, plan.Summary), nil
		},
	})
}

func registerAddTodo(reg *ToolRegistry, sched *taskplan.Scheduler) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "add_todo",
			Description: "Add a todo to the current plan. Todos with unmet dependencies are held back until the dependencies complete.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Short title for the todo.",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "What needs to be done and how to verify it.",
					},
					"priority": map[string]interface{}{
						"type":        "string",
						"description": "One of: high, medium, low. Default: medium.",
					},
					"estimated_effort": map[string]interface{}{
						"type":        "integer",
						"description": "Effort estimate from 1 to 10. Default: 3.",
					},
					"dependencies": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "integer"},
						"description": "IDs of todos that must complete first.",
					},
					"context": map[string]interface{}{
						"type":        "string",
						"description": "Relevant files, commands, or notes.",
					},
				},
				"required": []string{"title"},
			},
		},
		Executor: func(arguments json.RawMessage, env ExecutionEnvironment) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			title, ok := GetStringArg(args, "title")
			if !ok || title == "" {
				return "", fmt.Errorf("title is required")
			}
			description, _ := GetStringArg(args, "description")
			priorityStr, _ := GetStringArg(args, "priority")
			if priorityStr == "" {
				priorityStr = string(taskplan.PriorityMedium)
			}
			effort, _ := GetIntArg(args, "estimated_effort")
			if effort == 0 {
				effort = 3
			}
			deps, _ := GetInt64SliceArg(args, "dependencies")
			contextNote, _ := GetStringArg(args, "context")

			id, err := sched.AddTodo(title, description, taskplan.Priority(priorityStr), effort, deps, contextNote)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Added todo #%d: %s", id, title), nil
		},
	})
}

func registerUpdateTodoStatus(reg *ToolRegistry, sched *taskplan.Scheduler) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "update_todo_status",
			Description: "Update the status of a todo. Mark todos in_progress when starting and completed when done.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "integer",
						"description": "ID of the todo to update.",
					},
					"status": map[string]interface{}{
						"type":        "string",
						"description": "One of: pending, in_progress, completed, blocked, skipped.",
					},
				},
				"required": []string{"id", "status"},
			},
		},
		Executor: func(arguments json.RawMessage, env ExecutionEnvironment) (string, error) {
			args, err := ParseToolArguments(arguments)
			if err != nil {
				return "", err
			}
			id, ok := GetIntArg(args, "id")
			if !ok {
				return "", fmt.Errorf("id is required")
			}
			statusStr, ok := GetStringArg(args, "status")
			if !ok || statusStr == "" {
				return "", fmt.Errorf("status is required")
			}

			if err := sched.UpdateStatus(int64(id), taskplan.Status(statusStr)); err != nil {
				return "", err
			}

			progress := sched.GetProgress()
			return fmt.Sprintf("Todo #%d is now %s. Plan progress: %d%%", id, statusStr, progress.Percent), nil
		},
	})
}

func registerNextTodo(reg *ToolRegistry, sched *taskplan.Scheduler) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "next_todo",
			Description: "Get the highest-value todo that is ready to work on.",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		Executor: func(arguments json.RawMessage, env ExecutionEnvironment) (string, error) {
			result := sched.Next()
			switch result.State {
			case taskplan.NextReady:
				t := result.Todo
				var sb strings.Builder
				fmt.Fprintf(&sb, "Next: #%d %s (priority: %s, effort: %d)", t.ID, t.Title, t.Priority, t.EstimatedEffort)
				if t.Description != "" {
					fmt.Fprintf(&sb, "\n%s", t.Description)
				}
				if t.Context != "" {
					fmt.Fprintf(&sb, "\nContext: %s", t.Context)
				}
				return sb.String(), nil
			case taskplan.NextWorking:
				return fmt.Sprintf("No todo is ready; todos %v are in progress.", result.InProgress), nil
			case taskplan.NextPlanComplete:
				return "All todos are complete.", nil
			case taskplan.NextBlocked:
				return "No todo is ready and none are in progress. Review blocked todos or revise the plan.", nil
			default:
				return "No plan exists. Use create_plan and add_todo first.", nil
			}
		},
	})
}

func registerListTodos(reg *ToolRegistry, sched *taskplan.Scheduler) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "list_todos",
			Description: "List all todos in the current plan with their statuses.",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		Executor: func(arguments json.RawMessage, env ExecutionEnvironment) (string, error) {
			todos := sched.List()
			if len(todos) == 0 {
				return "No todos. Use create_plan and add_todo to build a plan.", nil
			}

			var sb strings.Builder
			for _, t := range todos {
				fmt.Fprintf(&sb, "#%d [%s] %s (priority: %s)", t.ID, t.Status, t.Title, t.Priority)
				if len(t.Dependencies) > 0 {
					fmt.Fprintf(&sb, " depends on %v", t.Dependencies)
				}
				sb.WriteString("\n")
			}

			progress := sched.GetProgress()
			fmt.Fprintf(&sb, "Progress: %d of %d completed (%d%%)", progress.Counts[taskplan.StatusCompleted], progress.Total, progress.Percent)
			return sb.String(), nil
		},
	})
}
