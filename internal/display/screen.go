// Package display renders what the terminal LCD shows while idle,
// so provisioning mistakes are visible before flashing.
package display

import (
	"bytes"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
	"github.com/temoto/termconf/internal/terminal"
)

const MaxWidth = 20

var spaceBytes = bytes.Repeat([]byte{' '}, MaxWidth)

const (
	DateShort = "02.01.06 15:04"
	DateLong  = "02.01.2006"
	TimeLong  = "15:04:05"
)

type Screen struct {
	rows     int
	width    int
	codepage string
	tr       charset.Translator
	idle     string
}

// NewScreen with empty codepage keeps text as is.
func NewScreen(d terminal.Display, codepage string) (*Screen, error) {
	if d.Rows < 1 || d.Rows > 4 {
		return nil, errors.NotValidf("display rows=%d", d.Rows)
	}
	self := &Screen{
		rows:     d.Rows,
		width:    d.Columns(),
		codepage: codepage,
		idle:     d.IdleLine1,
	}
	if codepage != "" {
		tr, err := charset.TranslatorTo(codepage)
		if err != nil {
			return nil, errors.Annotatef(err, "codepage=%s", codepage)
		}
		self.tr = tr
	}
	return self, nil
}

func (self *Screen) Rows() int  { return self.rows }
func (self *Screen) Width() int { return self.width }

// Translate returns device bytes for s.
func (self *Screen) Translate(s string) []byte {
	if len(s) == 0 {
		return spaceBytes[:0]
	}
	result := []byte(s)
	if self.tr != nil {
		_, tb, err := self.tr.Translate(result, true)
		if err != nil {
			panic(errors.Annotatef(err, "code error translate codepage=%s", self.codepage))
		}
		// translator reuses single internal buffer, make a copy
		result = append([]byte(nil), tb...)
	}
	return result
}

// cells is width of s on device.
func (self *Screen) cells(s string) int {
	if self.tr != nil {
		return len(self.Translate(s))
	}
	return utf8.RuneCountInString(s)
}

// Fits reports whether text takes at most one line.
func (self *Screen) Fits(text string) bool { return self.cells(text) <= self.width }

// JustCenter pads text with spaces on both sides, extra space goes right.
// Text not shorter than width-1 is returned as is.
func (self *Screen) JustCenter(s string) string {
	l := self.cells(s)
	w := self.width
	if l == 0 {
		return string(spaceBytes[:w])
	}
	if l >= w-1 {
		return s
	}
	padtotal := w - l
	n := padtotal / 2
	return string(spaceBytes[:n]) + s + string(spaceBytes[:n+padtotal%2])
}

// PadRight pads text to width, longer text is returned as is.
func (self *Screen) PadRight(s string) string {
	l := self.cells(s)
	if l >= self.width {
		return s
	}
	return s + string(spaceBytes[:self.width-l])
}

// Frame is full screen content, one entry per row.
type Frame struct {
	Width int
	Lines []string
}

func (f Frame) String() string { return strings.Join(f.Lines, "\n") }

// Boxed draws frame border for console output.
func (f Frame) Boxed() string {
	edge := "+" + strings.Repeat("-", f.Width) + "+"
	b := strings.Builder{}
	b.WriteString(edge + "\n")
	for _, l := range f.Lines {
		b.WriteString("|" + l + "|\n")
	}
	b.WriteString(edge)
	return b.String()
}

// Idle is screen shown while waiting for card: idle text, date and time.
// tz may be nil for UTC.
func (self *Screen) Idle(now time.Time, tz *terminal.TZ) Frame {
	if tz != nil {
		now = tz.In(now)
	} else {
		now = now.UTC()
	}
	var lines []string
	switch self.rows {
	case 1:
		lines = []string{self.idle}
	case 2:
		lines = []string{self.idle, now.Format(DateShort)}
	case 3:
		lines = []string{self.idle, now.Format(DateLong), now.Format(TimeLong)}
	default:
		lines = []string{self.idle, now.Format(DateLong), now.Format(TimeLong), ""}
	}
	f := Frame{Width: self.width, Lines: make([]string, len(lines))}
	for i, l := range lines {
		f.Lines[i] = self.PadRight(self.JustCenter(l))
	}
	return f
}

// Marquee returns successive states of line scrolling text that does not fit.
func (self *Screen) Marquee(text string, ticks int) []string {
	content := []rune(text)
	result := make([]string, 0, ticks)
	buf := make([]rune, self.width)
	for tick := 0; tick < ticks; tick++ {
		n := scrollWrap(buf, content, uint32(tick))
		for i := n; i < len(buf); i++ {
			buf[i] = ' '
		}
		result = append(result, string(buf))
	}
	return result
}

// relies that len(buf) == display width
func scrollWrap(buf []rune, content []rune, tick uint32) int {
	length := uint32(len(content))
	width := uint32(len(buf))
	gap := width / 2
	n := 0
	if length <= width {
		n = copy(buf, content)
		for i := n; i < len(buf); i++ {
			buf[i] = ' '
		}
		return n
	}

	offset := tick % (length + gap)
	if offset < length {
		n = copy(buf, content[offset:])
	} else {
		gap = gap - (offset - length)
	}
	for i := uint32(0); i < gap && n < len(buf); i++ {
		buf[n] = ' '
		n++
	}
	n += copy(buf[n:], content)
	return n
}
