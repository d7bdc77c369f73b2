package domain

import "time"

type Todo struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	Completed   bool      `json:"completed" db:"completed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CreateTodoInput struct {
	Title       *string `json:"title" validate:"required"`
	Description *string `json:"description"`
}

// TodoPatch carries only the fields present in an update request. A null
// description clears it; title and completed cannot be null.
type TodoPatch struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Completed   Optional[bool]   `json:"completed"`
}

// Violations reports fields sent as null that may not be null, keyed by
// JSON field name.
func (p TodoPatch) Violations() map[string]string {
	violations := make(map[string]string)
	if p.Title.Null {
		violations["title"] = "title must not be null"
	}
	if p.Completed.Null {
		violations["completed"] = "completed must not be null"
	}
	return violations
}

func (p TodoPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Completed.Set
}

// Apply returns t with the present fields of p overwritten.
func (p TodoPatch) Apply(t Todo) Todo {
	if p.Title.Set && !p.Title.Null {
		t.Title = p.Title.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Ptr()
	}
	if p.Completed.Set && !p.Completed.Null {
		t.Completed = p.Completed.Value
	}
	return t
}

type TodoDeletedEvent struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

const (
	EventTodoCreated = "TodoCreated"
	EventTodoUpdated = "TodoUpdated"
	EventTodoDeleted = "TodoDeleted"
)
