package chatkit

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// DanglingReferenceError reports an object that points at something the
// session directory no longer (or never did) hold.
type DanglingReferenceError struct {
	Kind string
	ID   string
}

func (e DanglingReferenceError) Error() string {
	if e.Kind == "" {
		return "dangling reference"
	}
	return fmt.Sprintf("dangling reference: %s %s is not in the directory", e.Kind, e.ID)
}

func (e DanglingReferenceError) Is(target error) bool {
	_, ok := target.(DanglingReferenceError)
	if ok {
		return true
	}
	_, ok = target.(*DanglingReferenceError)
	return ok
}

var (
	ErrNotFound          = NotFoundError{}
	ErrDanglingReference = DanglingReferenceError{}
)
