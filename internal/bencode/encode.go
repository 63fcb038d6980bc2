package bencode

import (
	"sort"
	"strconv"
)

// Encode serializes v into its canonical form: dictionary keys are
// emitted sorted ascending by raw byte value, so encoding the same
// value always yields identical bytes.
func Encode(v Value) []byte {
	return appendValue(nil, v)
}

func appendValue(b []byte, v Value) []byte {
	switch v := v.(type) {
	case Integer:
		b = append(b, 'i')
		b = strconv.AppendInt(b, int64(v), 10)
		b = append(b, 'e')
	case String:
		b = strconv.AppendInt(b, int64(len(v)), 10)
		b = append(b, ':')
		b = append(b, v...)
	case List:
		b = append(b, 'l')
		for _, item := range v {
			b = appendValue(b, item)
		}
		b = append(b, 'e')
	case Dict:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b = append(b, 'd')
		for _, k := range keys {
			b = appendValue(b, String(k))
			b = appendValue(b, v[k])
		}
		b = append(b, 'e')
	}
	return b
}
