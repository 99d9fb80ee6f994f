package runtime

import (
	"strconv"
	"strings"
)

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func joinValues(rt *Runtime, elems []Value, open, close string) string {
	var b strings.Builder
	b.WriteString(open)
	for i, e := range elems {
		if i > 0 {
			b.WriteString(", ")
		}
		if IsStringValue(e) {
			b.WriteByte('\'')
			b.WriteString(GetStringContent(e))
			b.WriteByte('\'')
		} else {
			b.WriteString(rt.Str(e))
		}
	}
	if len(elems) == 1 && open == "(" {
		b.WriteByte(',')
	}
	b.WriteString(close)
	return b.String()
}
