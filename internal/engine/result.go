package engine

// FieldError is an error located at a response path.
type FieldError struct {
	Message string `json:"message"`
	Path    Path   `json:"path,omitempty"`
}

func (e FieldError) Error() string { return e.Message }

// Result is the outcome of executing one operation (or one subscription event).
type Result struct {
	Data   any          `json:"data"`
	Errors []FieldError `json:"errors,omitempty"`
}
