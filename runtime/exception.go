package runtime

// ExceptionObject is a signaled error value, the runtime's representation of
// a Python-style exception instance. The evaluator never constructs these
// directly; they arise from failed primitive calls (e.g. IndexError on an
// out-of-range subscript).
type ExceptionObject struct {
	ClassName string
	Message   string
}

func (e *ExceptionObject) Error() string {
	if e.ClassName == "" {
		return e.Message
	}
	return e.ClassName + ": " + e.Message
}

// NewException constructs an exception Value. It is not "raised" by itself;
// callers return it alongside a non-nil error so the evaluator's §7
// RuntimeError path can surface it.
func NewException(class, message string) Value {
	obj := newObject(KindException)
	obj.exc = &ExceptionObject{ClassName: class, Message: message}
	return obj.ToValue()
}

func ExceptionFromValue(v Value) *ExceptionObject {
	obj := ObjectFromValue(v)
	if obj == nil || obj.kind != KindException {
		return nil
	}
	return obj.exc
}

func IsException(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindException
}

// Common exception class names, mirroring the host-runtime error vocabulary
// the evaluator assumes exists (IndexError, TypeError, ZeroDivisionError, ...).
const (
	ErrClassIndexError       = "IndexError"
	ErrClassTypeError        = "TypeError"
	ErrClassValueError       = "ValueError"
	ErrClassZeroDivision     = "ZeroDivisionError"
	ErrClassNameError        = "NameError"
	ErrClassAttributeError   = "AttributeError"
	ErrClassStopIteration    = "StopIteration"
	ErrClassOverflowError    = "OverflowError"
)
