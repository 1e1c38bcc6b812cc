package literal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// normalize rewrites one Python literal into YAML flow text that yaml.v3
// reads the same way. Quoted strings are unescaped with Python rules and
// re-emitted double-quoted; adjacent strings are joined. The whole cell must
// hold exactly one value.
func normalize(s string) (string, error) {
	var b strings.Builder
	depth := 0
	afterValue := false // the previous token ended a value

	for i := 0; i < len(s); {
		c := s[i]
		if isSpace(c) {
			i++
			continue
		}
		if depth == 0 && afterValue {
			return "", fmt.Errorf("unexpected %q after value", s[i:])
		}

		switch c {
		case '[', '{':
			if afterValue {
				return "", fmt.Errorf("missing comma before %q", c)
			}
			depth++
			b.WriteByte(c)
			i++
		case ']', '}':
			if depth == 0 {
				return "", fmt.Errorf("unbalanced %q", c)
			}
			depth--
			b.WriteByte(c)
			afterValue = true
			i++
			continue
		case ',', ':':
			if depth == 0 {
				return "", fmt.Errorf("unexpected %q", c)
			}
			b.WriteByte(c)
			b.WriteByte(' ')
			i++
		case '\'', '"':
			if afterValue {
				return "", errors.New("missing comma before string")
			}
			str, n, err := readStrings(s[i:])
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.Quote(str))
			afterValue = true
			i += n
			continue
		default:
			n := plainLen(s[i:])
			if n == 0 {
				return "", fmt.Errorf("unexpected character %q", c)
			}
			if afterValue {
				return "", fmt.Errorf("missing comma before %q", s[i:i+n])
			}
			b.WriteString(s[i : i+n])
			afterValue = true
			i += n
			continue
		}
		afterValue = false
	}

	if depth != 0 {
		return "", errors.New("unclosed bracket")
	}
	return b.String(), nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// plainLen measures a bare token: a number or a Python keyword.
func plainLen(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '.' || c == '+' || c == '-' || c == '_' {
			n++
			continue
		}
		break
	}
	return n
}

// readStrings reads one or more adjacent quoted strings and returns their
// concatenation and the number of bytes consumed.
func readStrings(s string) (string, int, error) {
	var out strings.Builder
	i := 0
	for {
		str, n, err := readQuoted(s[i:])
		if err != nil {
			return "", 0, err
		}
		out.WriteString(str)
		i += n

		j := i
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j == len(s) || (s[j] != '\'' && s[j] != '"') {
			return out.String(), i, nil
		}
		i = j
	}
}

// readQuoted reads a single- or double-quoted string starting at s[0],
// resolving backslash escapes.
func readQuoted(s string) (string, int, error) {
	q := s[0]
	var out strings.Builder
	for i := 1; i < len(s); {
		c := s[i]
		switch {
		case c == q:
			return out.String(), i + 1, nil
		case c == '\n':
			return "", 0, errors.New("unterminated string")
		case c != '\\':
			out.WriteByte(c)
			i++
			continue
		}

		if i+1 >= len(s) {
			break
		}
		n, err := unescape(&out, s[i+1:])
		if err != nil {
			return "", 0, err
		}
		i += 1 + n
	}
	return "", 0, errors.New("unterminated string")
}

// unescape writes the value of the escape sequence that follows a backslash
// and returns how many bytes of s it used. Unknown escapes keep the
// backslash.
func unescape(out *strings.Builder, s string) (int, error) {
	switch c := s[0]; c {
	case '\\', '\'', '"':
		out.WriteByte(c)
	case 'n':
		out.WriteByte('\n')
	case 't':
		out.WriteByte('\t')
	case 'r':
		out.WriteByte('\r')
	case 'a':
		out.WriteByte('\a')
	case 'b':
		out.WriteByte('\b')
	case 'f':
		out.WriteByte('\f')
	case 'v':
		out.WriteByte('\v')
	case '\n':
		// line continuation
	case 'x':
		return unescapeCode(out, s, 2, 16)
	case 'u':
		return unescapeCode(out, s, 4, 16)
	case 'U':
		return unescapeCode(out, s, 8, 16)
	default:
		if c >= '0' && c <= '7' {
			n := 1
			for n < 3 && n < len(s) && s[n] >= '0' && s[n] <= '7' {
				n++
			}
			v, _ := strconv.ParseUint(s[:n], 8, 32)
			out.WriteRune(rune(v))
			return n, nil
		}
		out.WriteByte('\\')
		out.WriteByte(c)
	}
	return 1, nil
}

func unescapeCode(out *strings.Builder, s string, digits, base int) (int, error) {
	if len(s) < 1+digits {
		return 0, fmt.Errorf("truncated \\%c escape", s[0])
	}
	v, err := strconv.ParseUint(s[1:1+digits], base, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0, fmt.Errorf("invalid \\%c escape %q", s[0], s[1:1+digits])
	}
	out.WriteRune(rune(v))
	return 1 + digits, nil
}
