// File: json/stringify.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Serializer grounded on stu_json_print_number/stu_json_print_string from
// stu_json.c. Escapes ARE applied to strings (the original does not,
// which spec.md flags as a bug since it breaks round-tripping of
// parser-produced escapes — see DESIGN.md).

package json

import (
	"math"
	"strconv"
)

// Stringify serializes n into a freshly allocated byte slice.
func Stringify(n *Node) []byte {
	buf := make([]byte, 0, 64)
	return appendValue(buf, n)
}

func appendValue(buf []byte, n *Node) []byte {
	if n == nil {
		return append(buf, "null"...)
	}
	switch n.Type {
	case Null:
		return append(buf, "null"...)
	case True:
		return append(buf, "true"...)
	case False:
		return append(buf, "false"...)
	case String:
		return appendString(buf, n.str)
	case Number:
		return appendNumber(buf, n.num)
	case Array:
		return appendArray(buf, n)
	case Object:
		return appendObject(buf, n)
	default:
		return append(buf, "null"...)
	}
}

func appendArray(buf []byte, n *Node) []byte {
	buf = append(buf, '[')
	for i, c := range n.children {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendValue(buf, c)
	}
	buf = append(buf, ']')
	return buf
}

func appendObject(buf []byte, n *Node) []byte {
	buf = append(buf, '{')
	for i, c := range n.children {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendString(buf, c.Key)
		buf = append(buf, ':')
		buf = appendValue(buf, c)
	}
	buf = append(buf, '}')
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		default:
			if c < 0x20 {
				buf = append(buf, '\\', 'u')
				buf = appendHex4(buf, uint16(c))
			} else {
				buf = append(buf, c)
			}
		}
	}
	buf = append(buf, '"')
	return buf
}

const hexDigits = "0123456789abcdef"

func appendHex4(buf []byte, v uint16) []byte {
	return append(buf,
		hexDigits[(v>>12)&0xF],
		hexDigits[(v>>8)&0xF],
		hexDigits[(v>>4)&0xF],
		hexDigits[v&0xF],
	)
}

// appendNumber applies these formatting rules, checked in this order:
//
//	exact zero                                -> "0"
//	integer-valued in [math.MinInt32,MaxInt32] -> decimal integer
//	NaN / ±Inf                                 -> "null"
//	|d| < 1e-6 or |d| > 1e9                    -> "%e"
//	integer-valued, |d| < 1e60                 -> "%.0f"
//	otherwise                                  -> "%f"
func appendNumber(buf []byte, d float64) []byte {
	if d == 0 {
		return append(buf, '0')
	}

	i := int64(d)
	if float64(i) == d && i >= math.MinInt32 && i <= math.MaxInt32 {
		return strconv.AppendInt(buf, i, 10)
	}

	if math.IsNaN(d) || math.IsInf(d, 0) {
		return append(buf, "null"...)
	}

	abs := math.Abs(d)
	switch {
	case abs < 1.0e-6 || abs > 1.0e9:
		return appendGoStyleExp(buf, d)
	case math.Floor(d) == d && abs < 1.0e60:
		return strconv.AppendFloat(buf, d, 'f', 0, 64)
	default:
		return strconv.AppendFloat(buf, d, 'f', 6, 64)
	}
}

// appendGoStyleExp mirrors C's "%e" (6 digits after the decimal point,
// two-digit exponent with explicit sign), matching spec scenario S5:
// 1e-7 -> "1.000000e-07", 1e10 -> "1.000000e+10".
func appendGoStyleExp(buf []byte, d float64) []byte {
	s := strconv.FormatFloat(d, 'e', 6, 64)
	// Go renders the exponent as e±dd or e±d; C's printf always pads to
	// two digits, so normalize a single-digit exponent.
	eIdx := -1
	for i := 0; i < len(s); i++ {
		if s[i] == 'e' {
			eIdx = i
			break
		}
	}
	if eIdx == -1 {
		return append(buf, s...)
	}
	mantissa := s[:eIdx]
	sign := s[eIdx+1]
	digits := s[eIdx+2:]
	if len(digits) < 2 {
		digits = "0" + digits
	}
	buf = append(buf, mantissa...)
	buf = append(buf, 'e', sign)
	buf = append(buf, digits...)
	return buf
}
