package archive

import (
	"errors"
	"fmt"
	"math"
)

// The archive is a Ruby Marshal 4.8 stream holding an Array of
// [Integer id, String name, String zlib_payload] triples. Only the subset
// of the format those values need is supported.

const (
	marshalMajor = 4
	marshalMinor = 8

	fixnumMin = -(1 << 30)
	fixnumMax = 1<<30 - 1
)

// Marshal type tags.
const (
	tagNil     = '0'
	tagTrue    = 'T'
	tagFalse   = 'F'
	tagFixnum  = 'i'
	tagBignum  = 'l'
	tagString  = '"'
	tagIvar    = 'I'
	tagArray   = '['
	tagSymbol  = ':'
	tagSymlink = ';'
	tagLink    = '@'
)

// ErrCorruptArchive is returned when the archive cannot be decoded.
var ErrCorruptArchive = errors.New("corrupt archive")

// DecodeError locates a decoding failure in the archive stream.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v at byte %d: %s", ErrCorruptArchive, e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrCorruptArchive
}

type scriptEntry struct {
	id      int64
	name    string
	payload []byte
}

type symbol string

// rstring is a Ruby String. Ruby strings are byte sequences; encoding
// instance variables are read and discarded.
type rstring []byte

func unmarshalScripts(data []byte) ([]scriptEntry, error) {
	d := &decoder{buf: data}
	if len(data) < 2 {
		return nil, d.fail("stream shorter than the version header")
	}
	if data[0] != marshalMajor || data[1] > marshalMinor {
		return nil, d.fail(fmt.Sprintf("unsupported marshal version %d.%d", data[0], data[1]))
	}
	d.pos = 2

	root, err := d.value()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.buf) {
		return nil, d.fail(fmt.Sprintf("%d trailing bytes", len(d.buf)-d.pos))
	}

	list, ok := root.([]any)
	if !ok {
		return nil, &DecodeError{Offset: 2, Reason: fmt.Sprintf("root is %T, want array", root)}
	}

	entries := make([]scriptEntry, len(list))
	for i, item := range list {
		e, err := toEntry(item)
		if err != nil {
			return nil, &DecodeError{Offset: 2, Reason: fmt.Sprintf("slot %d: %v", i, err)}
		}
		entries[i] = e
	}
	return entries, nil
}

func toEntry(item any) (scriptEntry, error) {
	fields, ok := item.([]any)
	if !ok || len(fields) != 3 {
		return scriptEntry{}, fmt.Errorf("want [id, name, payload], got %T", item)
	}
	id, ok := fields[0].(int64)
	if !ok {
		return scriptEntry{}, fmt.Errorf("id is %T, want integer", fields[0])
	}
	name, ok := fields[1].(rstring)
	if !ok {
		return scriptEntry{}, fmt.Errorf("name is %T, want string", fields[1])
	}
	payload, ok := fields[2].(rstring)
	if !ok {
		return scriptEntry{}, fmt.Errorf("payload is %T, want string", fields[2])
	}
	return scriptEntry{id: id, name: string(name), payload: []byte(payload)}, nil
}

type decoder struct {
	buf     []byte
	pos     int
	symbols []symbol
	objects []any
}

func (d *decoder) fail(reason string) error {
	return &DecodeError{Offset: d.pos, Reason: reason}
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, d.fail("unexpected end of stream")
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readBytes(n int64) ([]byte, error) {
	if n < 0 || n > int64(len(d.buf)-d.pos) {
		return nil, d.fail(fmt.Sprintf("length %d exceeds remaining %d bytes", n, len(d.buf)-d.pos))
	}
	b := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return b, nil
}

// long reads Marshal's variable-length integer.
func (d *decoder) long() (int64, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	c := int8(b)
	switch {
	case c == 0:
		return 0, nil
	case c > 4:
		return int64(c) - 5, nil
	case c < -4:
		return int64(c) + 5, nil
	case c > 0:
		var x int64
		for i := 0; i < int(c); i++ {
			v, err := d.readByte()
			if err != nil {
				return 0, err
			}
			x |= int64(v) << (8 * i)
		}
		return x, nil
	default:
		x := int64(-1)
		for i := 0; i < int(-c); i++ {
			v, err := d.readByte()
			if err != nil {
				return 0, err
			}
			x &^= 0xff << (8 * i)
			x |= int64(v) << (8 * i)
		}
		return x, nil
	}
}

func (d *decoder) length() (int64, error) {
	n, err := d.long()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, d.fail(fmt.Sprintf("negative length %d", n))
	}
	return n, nil
}

func (d *decoder) value() (any, error) {
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagNil:
		return nil, nil
	case tagTrue:
		return true, nil
	case tagFalse:
		return false, nil
	case tagFixnum:
		return d.long()
	case tagBignum:
		return d.bignum()
	case tagString:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(n)
		if err != nil {
			return nil, err
		}
		s := rstring(append([]byte(nil), b...))
		d.objects = append(d.objects, s)
		return s, nil
	case tagIvar:
		return d.ivar()
	case tagArray:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		if n > int64(len(d.buf)-d.pos) {
			return nil, d.fail(fmt.Sprintf("array of %d elements exceeds stream", n))
		}
		arr := make([]any, n)
		d.objects = append(d.objects, arr)
		for i := range arr {
			if arr[i], err = d.value(); err != nil {
				return nil, err
			}
		}
		return arr, nil
	case tagSymbol, tagSymlink:
		d.pos--
		return d.symbol()
	case tagLink:
		idx, err := d.long()
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= int64(len(d.objects)) {
			return nil, d.fail(fmt.Sprintf("object link %d out of range", idx))
		}
		return d.objects[idx], nil
	default:
		return nil, d.fail(fmt.Sprintf("unsupported type tag %q", tag))
	}
}

// ivar reads an object followed by its instance variables. Strings written
// by newer editors carry an encoding ivar (:E or :encoding); it is dropped.
func (d *decoder) ivar() (any, error) {
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < n; i++ {
		if _, err := d.symbol(); err != nil {
			return nil, err
		}
		if _, err := d.value(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (d *decoder) symbol() (symbol, error) {
	tag, err := d.readByte()
	if err != nil {
		return "", err
	}
	switch tag {
	case tagSymbol:
		n, err := d.length()
		if err != nil {
			return "", err
		}
		b, err := d.readBytes(n)
		if err != nil {
			return "", err
		}
		s := symbol(b)
		d.symbols = append(d.symbols, s)
		return s, nil
	case tagSymlink:
		idx, err := d.long()
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= int64(len(d.symbols)) {
			return "", d.fail(fmt.Sprintf("symbol link %d out of range", idx))
		}
		return d.symbols[idx], nil
	default:
		return "", d.fail(fmt.Sprintf("expected symbol, got tag %q", tag))
	}
}

// bignum reads an arbitrary-precision integer. Values outside int64 are
// rejected; script ids never need them.
func (d *decoder) bignum() (int64, error) {
	sign, err := d.readByte()
	if err != nil {
		return 0, err
	}
	if sign != '+' && sign != '-' {
		return 0, d.fail(fmt.Sprintf("bad bignum sign %q", sign))
	}
	shorts, err := d.length()
	if err != nil {
		return 0, err
	}
	mag, err := d.readBytes(shorts * 2)
	if err != nil {
		return 0, err
	}

	var x uint64
	for i, b := range mag {
		if b == 0 {
			continue
		}
		if i >= 8 {
			return 0, d.fail("bignum exceeds 64 bits")
		}
		x |= uint64(b) << (8 * i)
	}
	if sign == '-' {
		if x > 1<<63 {
			return 0, d.fail("bignum exceeds 64 bits")
		}
		v := -int64(x)
		d.objects = append(d.objects, v)
		return v, nil
	}
	if x > math.MaxInt64 {
		return 0, d.fail("bignum exceeds 64 bits")
	}
	d.objects = append(d.objects, int64(x))
	return int64(x), nil
}

func marshalScripts(entries []scriptEntry) ([]byte, error) {
	buf := []byte{marshalMajor, marshalMinor, tagArray}
	buf = appendLong(buf, int64(len(entries)))
	for i, e := range entries {
		if len(e.name) > math.MaxInt32 || len(e.payload) > math.MaxInt32 {
			return nil, fmt.Errorf("encode archive: slot %d exceeds the 2 GiB string limit", i)
		}
		buf = append(buf, tagArray)
		buf = appendLong(buf, 3)
		buf = appendInteger(buf, e.id)
		buf = appendString(buf, []byte(e.name))
		buf = appendString(buf, e.payload)
	}
	return buf, nil
}

func appendString(buf, s []byte) []byte {
	buf = append(buf, tagString)
	buf = appendLong(buf, int64(len(s)))
	return append(buf, s...)
}

func appendInteger(buf []byte, x int64) []byte {
	if x >= fixnumMin && x <= fixnumMax {
		return appendLong(append(buf, tagFixnum), x)
	}

	buf = append(buf, tagBignum)
	var mag uint64
	if x < 0 {
		buf = append(buf, '-')
		mag = uint64(-(x + 1)) + 1
	} else {
		buf = append(buf, '+')
		mag = uint64(x)
	}

	var digits []byte
	for mag > 0 {
		digits = append(digits, byte(mag))
		mag >>= 8
	}
	if len(digits)%2 == 1 {
		digits = append(digits, 0)
	}
	buf = appendLong(buf, int64(len(digits)/2))
	return append(buf, digits...)
}

// appendLong writes Marshal's variable-length integer. x must fit in 32
// bits.
func appendLong(buf []byte, x int64) []byte {
	switch {
	case x == 0:
		return append(buf, 0)
	case x > 0 && x < 123:
		return append(buf, byte(x+5))
	case x < 0 && x > -124:
		return append(buf, byte((x-5)&0xff))
	}

	var tmp [4]byte
	for i := 1; i <= len(tmp); i++ {
		tmp[i-1] = byte(x)
		x >>= 8
		if x == 0 {
			return append(append(buf, byte(i)), tmp[:i]...)
		}
		if x == -1 {
			return append(append(buf, byte(-i)), tmp[:i]...)
		}
	}
	panic("marshal: long out of 32-bit range")
}
