// Package authz holds the role capability table.
//
// Roles are a flat set; there is no ordering between them. Each operation
// that needs a gate asks Check whether the session's role carries the
// capability. Reads are not gated.
package authz

import (
	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/types"
)

// Operation names a gated action.
type Operation string

const (
	CreateBoard Operation = "create_board"
	DeleteBoard Operation = "delete_board"
	AddColumn   Operation = "add_column"
	ExportBoard Operation = "export_board"
	CreateTask  Operation = "create_task"
	EditTask    Operation = "edit_task"
	MoveTask    Operation = "move_task"
	DeleteTask  Operation = "delete_task"
)

var taskOperations = []Operation{CreateTask, EditTask, MoveTask, DeleteTask}

var capabilities = map[types.Role]map[Operation]bool{
	types.RoleMembers: {},
	types.RoleHashira: set(taskOperations...),
	types.RoleBoss:    set(append([]Operation{CreateBoard, DeleteBoard, AddColumn, ExportBoard}, taskOperations...)...),
}

func set(ops ...Operation) map[Operation]bool {
	m := make(map[Operation]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

// Allowed reports whether role may perform op.
func Allowed(role types.Role, op Operation) bool {
	return capabilities[role][op]
}

// Check returns a permission error unless role may perform op.
func Check(role types.Role, op Operation) error {
	if Allowed(role, op) {
		return nil
	}
	return apperr.Permission("role %q is not allowed to %s", role, describe(op))
}

func describe(op Operation) string {
	switch op {
	case CreateBoard:
		return "create boards"
	case DeleteBoard:
		return "delete boards"
	case AddColumn:
		return "add board columns"
	case ExportBoard:
		return "export boards"
	case CreateTask:
		return "create tasks"
	case EditTask:
		return "edit tasks"
	case MoveTask:
		return "move tasks"
	case DeleteTask:
		return "delete tasks"
	default:
		return string(op)
	}
}
