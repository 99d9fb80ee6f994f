package runtime

import "fmt"

// hostError wraps an ExceptionObject so it satisfies the error interface
// while still carrying the structured class/message pair the evaluator's
// RuntimeError path wants to preserve verbatim.
type hostError struct {
	exc *ExceptionObject
}

func (e *hostError) Error() string { return e.exc.Error() }

// Exception extracts the underlying ExceptionObject from an error produced
// by this package's constructors, or nil if err did not originate here.
func Exception(err error) *ExceptionObject {
	if he, ok := err.(*hostError); ok {
		return he.exc
	}
	return nil
}

func newHostError(class, message string) error {
	return &hostError{exc: &ExceptionObject{ClassName: class, Message: message}}
}

func typeError(message string) error {
	return newHostError(ErrClassTypeError, message)
}

func valueError(message string) error {
	return newHostError(ErrClassValueError, message)
}

func indexError(message string) error {
	return newHostError(ErrClassIndexError, message)
}

func keyError(key Value) error {
	return newHostError(ErrClassValueError, fmt.Sprintf("key not found: %v", key))
}

func attributeError(name string) error {
	return newHostError(ErrClassAttributeError, "no attribute '"+name+"'")
}

func nameErrorFor(name string) error {
	return newHostError(ErrClassNameError, "name '"+name+"' is not defined")
}

func zeroDivisionError(op string) error {
	return newHostError(ErrClassZeroDivision, op+" by zero")
}

func overflowError(message string) error {
	return newHostError(ErrClassOverflowError, message)
}

// reportRefcountUnderflow surfaces a Decref-past-zero as a panic: this is
// an Invariant violation, a host defect rather than a recoverable
// guest-program error, so unlike the hostError family above it
// is never meant to be caught by evaluator code.
func reportRefcountUnderflow(obj *Object) {
	panic(fmt.Sprintf("runtime: refcount underflow on object kind %d", obj.kind))
}
