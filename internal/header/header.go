// Package header reads and writes the firmware configuration header:
// a flat list of `#define NAME literal` lines.
//
// Parse keeps every byte of the input, so Render reproduces the file exactly.
// Set rewrites only the affected line in canonical form.
package header

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/temoto/termconf/internal/terminal"
)

type LineKind int

const (
	// LineText is anything but define: pragma, comment, blank.
	LineText LineKind = iota
	LineDefine
)

type Line struct {
	Kind LineKind
	// Raw text without line terminator.
	Raw string
	// EOL is "\n", "\r\n" or "" for last line without newline.
	EOL string
	// Number is 1-based line number in parsed input, 0 for added lines.
	Number int

	Name    string
	Literal string
	Value   terminal.Value
}

type File struct {
	Lines []Line
	index map[string]int
}

func Parse(r io.Reader) (*File, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Annotate(err, "header read")
	}
	return ParseBytes(b)
}

func ParseBytes(b []byte) (*File, error) {
	f := &File{index: make(map[string]int)}
	errs := make([]string, 0)
	n := 0
	for len(b) > 0 {
		n++
		var raw []byte
		eol := ""
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			raw, b = b[:i], b[i+1:]
			eol = "\n"
			if len(raw) > 0 && raw[len(raw)-1] == '\r' {
				raw = raw[:len(raw)-1]
				eol = "\r\n"
			}
		} else {
			raw, b = b, nil
		}

		line := Line{Raw: string(raw), EOL: eol, Number: n}
		if isDefine(line.Raw) {
			if err := parseDefine(&line); err != nil {
				errs = append(errs, fmt.Sprintf("line %d: %v", n, err))
				f.Lines = append(f.Lines, line)
				continue
			}
			if prev, dup := f.index[line.Name]; dup {
				errs = append(errs, fmt.Sprintf("line %d: duplicate definition %s, first at line %d",
					n, line.Name, f.Lines[prev].Number))
			} else {
				f.index[line.Name] = len(f.Lines)
			}
		}
		f.Lines = append(f.Lines, line)
	}
	if len(errs) != 0 {
		return nil, errors.Errorf("header: %s", strings.Join(errs, "; "))
	}
	return f, nil
}

// Render writes exactly the bytes that were parsed, with Set changes applied.
func (f *File) Render(w io.Writer) error {
	for _, l := range f.Lines {
		if _, err := io.WriteString(w, l.Raw+l.EOL); err != nil {
			return errors.Annotate(err, "header render")
		}
	}
	return nil
}

func (f *File) Bytes() []byte {
	buf := bytes.NewBuffer(nil)
	_ = f.Render(buf)
	return buf.Bytes()
}

func (f *File) Get(name string) (terminal.Value, bool) {
	i, ok := f.index[name]
	if !ok {
		return terminal.Value{}, false
	}
	return f.Lines[i].Value, true
}

// Names of defines in file order.
func (f *File) Names() []string {
	result := make([]string, 0, len(f.index))
	for _, l := range f.Lines {
		if l.Kind == LineDefine {
			result = append(result, l.Name)
		}
	}
	return result
}

// Set replaces value of existing define or appends new one.
func (f *File) Set(name string, v terminal.Value) {
	lit := FormatValue(v)
	raw := "#define " + name + " " + lit
	if i, ok := f.index[name]; ok {
		l := &f.Lines[i]
		l.Raw, l.Literal, l.Value = raw, lit, v
		return
	}
	if n := len(f.Lines); n > 0 && f.Lines[n-1].EOL == "" {
		f.Lines[n-1].EOL = "\n"
	}
	f.index[name] = len(f.Lines)
	f.Lines = append(f.Lines, Line{Kind: LineDefine, Raw: raw, EOL: "\n", Name: name, Literal: lit, Value: v})
}

// FormatValue returns canonical literal.
func FormatValue(v terminal.Value) string {
	switch v.Kind {
	case terminal.KindString:
		return quote(v.S)
	case terminal.KindBool:
		return strconv.FormatBool(v.B)
	case terminal.KindInt:
		return strconv.Itoa(v.I)
	}
	panic(fmt.Sprintf("code error FormatValue kind=%v", v.Kind))
}

// ParseLiteral converts literal text to typed value.
func ParseLiteral(lit string) (terminal.Value, error) {
	switch {
	case lit == "":
		return terminal.Value{}, errors.Errorf("empty literal")
	case lit[0] == '"':
		s, err := unquote(lit)
		if err != nil {
			return terminal.Value{}, errors.Annotatef(err, "bad string literal %s", lit)
		}
		return terminal.StringValue(s), nil
	case lit == "true":
		return terminal.BoolValue(true), nil
	case lit == "false":
		return terminal.BoolValue(false), nil
	}
	i, err := strconv.ParseInt(lit, 0, 32)
	if err != nil {
		return terminal.Value{}, errors.Errorf("bad literal %s, expected \"string\", true, false or integer", lit)
	}
	return terminal.IntValue(int(i)), nil
}

func isDefine(raw string) bool {
	s := strings.TrimLeft(raw, " \t")
	if !strings.HasPrefix(s, "#") {
		return false
	}
	s = strings.TrimLeft(s[1:], " \t")
	return strings.HasPrefix(s, "define") && (len(s) == 6 || s[6] == ' ' || s[6] == '\t')
}

func parseDefine(l *Line) error {
	l.Kind = LineDefine
	s := strings.TrimLeft(l.Raw, " \t")
	s = strings.TrimLeft(s[1:], " \t")
	s = strings.TrimLeft(s[len("define"):], " \t")

	i := 0
	for i < len(s) && isIdent(s[i], i == 0) {
		i++
	}
	if i == 0 {
		return errors.Errorf("define without name")
	}
	l.Name = s[:i]
	rest := s[i:]
	if strings.HasPrefix(rest, "(") {
		return errors.Errorf("function-like macro %s is not a setting", l.Name)
	}
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" || isComment(rest) {
		return errors.Errorf("define %s without value", l.Name)
	}

	var lit string
	if rest[0] == '"' {
		end := stringEnd(rest)
		if end < 0 {
			return errors.Errorf("define %s unterminated string", l.Name)
		}
		lit, rest = rest[:end], rest[end:]
	} else {
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			end = len(rest)
		}
		if c := strings.Index(rest, "//"); c >= 0 && c < end {
			end = c
		}
		if c := strings.Index(rest, "/*"); c >= 0 && c < end {
			end = c
		}
		lit, rest = rest[:end], rest[end:]
	}
	if tail := strings.TrimSpace(rest); tail != "" && !isComment(tail) {
		return errors.Errorf("define %s unexpected '%s' after value", l.Name, tail)
	}

	v, err := ParseLiteral(lit)
	if err != nil {
		return errors.Annotatef(err, "define %s", l.Name)
	}
	l.Literal = lit
	l.Value = v
	return nil
}

// stringEnd returns index after closing quote, s[0] must be '"'.
func stringEnd(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return -1
}

func isComment(s string) bool {
	return strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/*")
}

func isIdent(c byte, first bool) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || (!first && '0' <= c && c <= '9')
}

// quote produces C string literal. Control and invalid UTF-8 bytes use
// 3-digit octal escapes, which unlike \x cannot swallow following digits.
func quote(s string) string {
	b := strings.Builder{}
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\%03o`, s[i])
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\%03o`, r)
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('"')
	return b.String()
}

// unquote decodes C string literal: simple escapes, 1-3 digit octal,
// greedy \x hex and \u \U universal character names.
func unquote(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != '"' || lit[len(lit)-1] != '"' {
		return "", errors.Errorf("not quoted")
	}
	s := lit[1 : len(lit)-1]
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\n':
			return "", errors.Errorf("raw %q at offset %d", c, i+1)
		case c != '\\':
			b = append(b, c)
			i++
			continue
		}
		i++
		if i >= len(s) {
			return "", errors.Errorf("trailing backslash")
		}
		c = s[i]
		i++
		if simple, ok := cEscapes[c]; ok {
			b = append(b, simple)
			continue
		}
		switch {
		case isOctal(c):
			v := int(c - '0')
			for n := 1; n < 3 && i < len(s) && isOctal(s[i]); n++ {
				v = v*8 + int(s[i]-'0')
				i++
			}
			if v > 0xff {
				return "", errors.Errorf("octal escape \\%o out of range", v)
			}
			b = append(b, byte(v))
		case c == 'x':
			start := i
			v := 0
			for i < len(s) && isHexDigit(s[i]) {
				v = v*16 + hexValue(s[i])
				i++
				if v > 0xff {
					return "", errors.Errorf("hex escape \\x%s out of range", s[start:i])
				}
			}
			if i == start {
				return "", errors.Errorf("\\x without hex digits")
			}
			b = append(b, byte(v))
		case c == 'u' || c == 'U':
			n := 4
			if c == 'U' {
				n = 8
			}
			if i+n > len(s) {
				return "", errors.Errorf("short \\%c escape", c)
			}
			v := 0
			for _, d := range []byte(s[i : i+n]) {
				if !isHexDigit(d) {
					return "", errors.Errorf("bad \\%c escape %s", c, s[i:i+n])
				}
				v = v*16 + hexValue(d)
			}
			i += n
			if !utf8.ValidRune(rune(v)) {
				return "", errors.Errorf("bad \\%c escape %s", c, s[i-n:i])
			}
			b = append(b, string(rune(v))...)
		default:
			return "", errors.Errorf("unknown escape \\%c", c)
		}
	}
	return string(b), nil
}

var cEscapes = map[byte]byte{
	'\'': '\'', '"': '"', '?': '?', '\\': '\\',
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

func isOctal(c byte) bool    { return '0' <= c && c <= '7' }
func isHexDigit(c byte) bool { return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' }

func hexValue(c byte) int {
	switch {
	case c <= '9':
		return int(c - '0')
	case c >= 'a':
		return int(c-'a') + 10
	}
	return int(c-'A') + 10
}
