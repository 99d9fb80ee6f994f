package runtime

import (
	"bufio"
	"io"
)

// FileValue backs the PRINT_ITEM_TO/PRINT_NEWLINE_TO opcodes' destination
// operand and the plain PRINT_ITEM/PRINT_NEWLINE opcodes' implicit stdout
// target. softspace tracks the "pending space before the next
// printed item" flag Python's print statement threads through a stream.
type FileValue struct {
	w         *bufio.Writer
	softspace bool
}

func newFileValue(w io.Writer) *FileValue {
	return &FileValue{w: bufio.NewWriter(w)}
}

func NewFile(w io.Writer) Value {
	obj := newObject(KindFile)
	obj.file = newFileValue(w)
	return obj.ToValue()
}

func IsFileValue(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindFile
}

func fileOf(v Value) *FileValue {
	obj := ObjectFromValue(v)
	if obj == nil || obj.kind != KindFile {
		return nil
	}
	return obj.file
}

// Stdout returns the runtime's standard-output file Value with one new
// reference that the caller owns and releases with Decref; Runtime retains
// its own reference for the lifetime of the process.
func (rt *Runtime) Stdout() Value {
	Incref(rt.stdout)
	return rt.stdout
}

// SoftSpace reports and updates the pending-space flag PRINT_ITEM consults
// before writing a separator, matching CPython's softspace attribute.
func (rt *Runtime) SoftSpace(file Value) bool {
	f := fileOf(file)
	if f == nil {
		return false
	}
	return f.softspace
}

func (rt *Runtime) SetSoftSpace(file Value, v bool) {
	if f := fileOf(file); f != nil {
		f.softspace = v
	}
}

// WriteString writes raw text to file's underlying stream, used by
// PRINT_ITEM/PRINT_NEWLINE after they have rendered the operand with Str.
func (rt *Runtime) WriteString(file Value, s string) error {
	f := fileOf(file)
	if f == nil {
		return typeError("write target is not a file")
	}
	_, err := f.w.WriteString(s)
	return err
}

// Flush flushes a file's buffered writer. PRINT_NEWLINE, the print()
// builtin and cmd/regeval (after Eval returns) call it; RETURN_VALUE does
// not.
func (rt *Runtime) Flush(file Value) error {
	f := fileOf(file)
	if f == nil {
		return nil
	}
	return f.w.Flush()
}
