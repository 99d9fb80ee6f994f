package vm

import "fmt"

// ErrorKind enumerates the evaluator's error taxonomy.
type ErrorKind byte

const (
	KindArityError ErrorKind = iota
	KindNameError
	KindUnsupportedFeature
	KindRuntimeError
	KindRuntimeLimitExceeded
	KindInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case KindArityError:
		return "ArityError"
	case KindNameError:
		return "NameError"
	case KindUnsupportedFeature:
		return "UnsupportedFeature"
	case KindRuntimeError:
		return "RuntimeError"
	case KindRuntimeLimitExceeded:
		return "RuntimeLimitExceeded"
	case KindInvariant:
		return "Invariant"
	default:
		return "UnknownError"
	}
}

// EvalError is the evaluator's tagged error descriptor. It
// propagates up the recursive evaluator stack unmodified; no handler catches
// it locally — the outermost Eval call converts it to the host's
// (value-or-null, error-indicator) return convention.
type EvalError struct {
	Kind    ErrorKind
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newEvalError(kind ErrorKind, message string) *EvalError {
	return &EvalError{Kind: kind, Message: message}
}

// unsupportedOpError raises UnsupportedFeature naming the opcode.
func unsupportedOpError(op Opcode) *EvalError {
	return newEvalError(KindUnsupportedFeature, "unsupported opcode: "+op.String())
}

// invariantError models the Invariant error kind: dispatch reaching an
// unmapped opcode, or an internal state the handlers treat as unreachable.
// Both are fatal, non-recoverable evaluator defects. A refcount underflow
// is not reported through this function: the host runtime panics instead.
func invariantError(message string) *EvalError {
	return newEvalError(KindInvariant, message)
}

// asEvalError adapts host-runtime errors (package runtime's hostError) into
// the evaluator's RuntimeError kind, preserving the underlying message: a
// host-runtime primitive returned an error, so surface it as-is.
func asEvalError(err error) *EvalError {
	if err == nil {
		return nil
	}
	if ee, ok := err.(*EvalError); ok {
		return ee
	}
	if ae, ok := err.(*arityError); ok {
		return newEvalError(KindArityError, ae.Error())
	}
	return newEvalError(KindRuntimeError, err.Error())
}
