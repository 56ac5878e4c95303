package domain

// Todo is a single todo item belonging to one user.
// Description is nullable in the persisted JSON, hence the pointer.
type Todo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// Dataset is the entire persisted state: username -> ordered todo items.
// It is always loaded and saved as one document.
type Dataset map[string][]Todo
