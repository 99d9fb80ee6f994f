package runtime

// Iterator is the runtime-side iteration protocol backing GET_ITER/FOR_ITER
//. Next returns ok=false on exhaustion, matching Python's
// StopIteration-by-sentinel convention rather than an error.
type Iterator interface {
	Next() (v Value, ok bool)
}

// sliceIterator walks a tuple/list's owned element slice without copying it,
// yielding a fresh reference to each element in turn.
type sliceIterator struct {
	elems []Value
	pos   int
}

func (it *sliceIterator) Next() (Value, bool) {
	if it.pos >= len(it.elems) {
		return Nil, false
	}
	v := it.elems[it.pos]
	it.pos++
	Incref(v)
	return v, true
}

// rangeIterator backs the host `range(n)` builtin, e.g. sum_to's
// `for i in range(n)`.
type rangeIterator struct {
	cur, stop, step int64
}

func (it *rangeIterator) Next() (Value, bool) {
	if (it.step > 0 && it.cur >= it.stop) || (it.step < 0 && it.cur <= it.stop) {
		return Nil, false
	}
	v := FromSmallInt(it.cur)
	it.cur += it.step
	return v, true
}

func newIteratorValue(it Iterator) Value {
	obj := newObject(KindIterator)
	obj.iter = it
	return obj.ToValue()
}

func IsIterator(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindIterator
}

// Iter implements the host "iter(obj)" capability.
func (rt *Runtime) Iter(obj Value) (Value, error) {
	o := ObjectFromValue(obj)
	if o == nil {
		return Nil, typeError("object is not iterable")
	}
	switch o.kind {
	case KindTuple, KindList:
		return newIteratorValue(&sliceIterator{elems: o.elems}), nil
	case KindIterator:
		Incref(obj)
		return obj, nil
	default:
		return Nil, typeError("object is not iterable")
	}
}

// Next implements the "next(iter)" capability. ok=false means exhausted
// (FOR_ITER should take its branch); err != nil means a genuine failure.
func (rt *Runtime) Next(iterV Value) (v Value, ok bool, err error) {
	o := ObjectFromValue(iterV)
	if o == nil || o.kind != KindIterator {
		return Nil, false, typeError("next() of non-iterator")
	}
	v, ok = o.iter.Next()
	return v, ok, nil
}

// NewRange constructs a host range iterator value.
func (rt *Runtime) NewRange(start, stop, step int64) Value {
	if step == 0 {
		step = 1
	}
	return newIteratorValue(&rangeIterator{cur: start, stop: stop, step: step})
}
