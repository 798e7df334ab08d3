package validator

// Validator validates a struct value.
type Validator interface {
	Validate(data any) error
}
