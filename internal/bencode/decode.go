package bencode

import (
	"fmt"
	"strconv"
)

// Decode parses a single bencoded value from data. Trailing bytes after
// the top-level value are an error.
func Decode(data []byte) (Value, error) {
	d := &decoder{data: data}
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	if d.off != len(d.data) {
		return nil, d.fail("trailing data after top-level value")
	}
	return v, nil
}

type decoder struct {
	data []byte
	off  int
}

func (d *decoder) fail(format string, args ...any) error {
	return &DecodeError{Offset: d.off, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) peek() (byte, error) {
	if d.off >= len(d.data) {
		return 0, d.fail("unexpected end of input")
	}
	return d.data[d.off], nil
}

func (d *decoder) value() (Value, error) {
	c, err := d.peek()
	if err != nil {
		return nil, err
	}
	switch {
	case c == 'i':
		return d.integer()
	case c == 'l':
		return d.list()
	case c == 'd':
		return d.dict()
	case c >= '0' && c <= '9':
		return d.byteString()
	default:
		return nil, d.fail("unexpected byte %q", c)
	}
}

func (d *decoder) integer() (Value, error) {
	d.off++ // 'i'
	start := d.off
	if c, err := d.peek(); err != nil {
		return nil, err
	} else if c == '-' {
		d.off++
	}
	digits := 0
	for d.off < len(d.data) && d.data[d.off] >= '0' && d.data[d.off] <= '9' {
		d.off++
		digits++
	}
	if digits == 0 {
		return nil, d.fail("integer has no digits")
	}
	text := string(d.data[start:d.off])
	if text == "-0" {
		return nil, d.fail("negative zero integer")
	}
	if digits > 1 && (text[0] == '0' || (text[0] == '-' && text[1] == '0')) {
		return nil, d.fail("integer has leading zero")
	}
	if c, err := d.peek(); err != nil {
		return nil, err
	} else if c != 'e' {
		return nil, d.fail("unterminated integer")
	}
	d.off++ // 'e'
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, d.fail("integer %s out of range", text)
	}
	return Integer(n), nil
}

func (d *decoder) byteString() (String, error) {
	start := d.off
	for d.off < len(d.data) && d.data[d.off] >= '0' && d.data[d.off] <= '9' {
		d.off++
	}
	if d.off == start {
		return nil, d.fail("byte string length is not numeric")
	}
	if d.off-start > 1 && d.data[start] == '0' {
		return nil, d.fail("byte string length has leading zero")
	}
	length, err := strconv.Atoi(string(d.data[start:d.off]))
	if err != nil {
		return nil, d.fail("byte string length is not numeric")
	}
	if c, perr := d.peek(); perr != nil {
		return nil, perr
	} else if c != ':' {
		return nil, d.fail("byte string length not followed by ':'")
	}
	d.off++ // ':'
	if length > len(d.data)-d.off {
		return nil, d.fail("byte string length %d exceeds remaining input", length)
	}
	s := String(d.data[d.off : d.off+length])
	d.off += length
	return s, nil
}

func (d *decoder) list() (Value, error) {
	d.off++ // 'l'
	l := List{}
	for {
		c, err := d.peek()
		if err != nil {
			return nil, d.fail("unterminated list")
		}
		if c == 'e' {
			d.off++
			return l, nil
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		l = append(l, v)
	}
}

func (d *decoder) dict() (Value, error) {
	d.off++ // 'd'
	m := Dict{}
	for {
		c, err := d.peek()
		if err != nil {
			return nil, d.fail("unterminated dictionary")
		}
		if c == 'e' {
			d.off++
			return m, nil
		}
		if c < '0' || c > '9' {
			return nil, d.fail("dictionary key is not a byte string")
		}
		key, err := d.byteString()
		if err != nil {
			return nil, err
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		// Key order and duplicates are accepted on decode; real-world
		// torrents vary. Last duplicate wins.
		m[string(key)] = v
	}
}
