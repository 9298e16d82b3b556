package vm

import "errors"

// Exception is a value thrown by script code.
type Exception struct {
	Value Value
}

func (e *Exception) Error() string {
	return DisplayString(e.Value)
}

// Throw returns an error carrying v as the thrown value.
func Throw(v Value) error {
	return &Exception{Value: v}
}

// ThrowError throws a new error object.
func ThrowError(name, message string) error {
	return Throw(NewError(name, message))
}

// AsException extracts a thrown value from err's chain.
func AsException(err error) (*Exception, bool) {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc, true
	}
	return nil, false
}
