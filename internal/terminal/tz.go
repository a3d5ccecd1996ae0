package terminal

import (
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"
)

// TZ is parsed POSIX timezone rule, e.g. "CET-1CEST,M3.5.0/2,M10.5.0/3".
// Offsets are seconds east of UTC (POSIX strings use the opposite sign).
type TZ struct {
	StdName   string
	StdOffset int
	DstName   string
	DstOffset int
	Start     TZRule
	End       TZRule
}

type TZRule struct {
	// 'J' Julian day 1..365 without Feb 29, 'D' zero-based day 0..365, 'M' month.week.weekday
	Kind    byte
	Day     int
	Week    int
	Month   int
	Weekday int
	// Time of transition, seconds after local midnight.
	Time int
}

const tzDefaultRuleTime = 2 * 3600

// US rules, used by newlib and glibc when DST name has no rules.
var tzDefaultRules = [2]TZRule{
	{Kind: 'M', Month: 3, Week: 2, Weekday: 0, Time: tzDefaultRuleTime},
	{Kind: 'M', Month: 11, Week: 1, Weekday: 0, Time: tzDefaultRuleTime},
}

func ParseTZ(s string) (*TZ, error) {
	p := tzParser{s: s}
	z, err := p.parse()
	if err != nil {
		return nil, errors.Annotatef(err, "timezone '%s'", s)
	}
	return z, nil
}

func (z *TZ) HasDST() bool { return z.DstName != "" }

// Offset returns zone abbreviation and offset in effect at t.
func (z *TZ) Offset(t time.Time) (string, int) {
	if !z.HasDST() {
		return z.StdName, z.StdOffset
	}
	utc := t.UTC()
	year := utc.Add(time.Duration(z.StdOffset) * time.Second).Year()
	// start is given in standard local time, end in daylight local time
	start := z.Start.wall(year).Add(-time.Duration(z.StdOffset) * time.Second)
	end := z.End.wall(year).Add(-time.Duration(z.DstOffset) * time.Second)
	var dst bool
	if start.Before(end) {
		dst = !utc.Before(start) && utc.Before(end)
	} else { // southern hemisphere
		dst = !utc.Before(start) || utc.Before(end)
	}
	if dst {
		return z.DstName, z.DstOffset
	}
	return z.StdName, z.StdOffset
}

// In converts t to terminal local time.
func (z *TZ) In(t time.Time) time.Time {
	name, off := z.Offset(t)
	return t.In(time.FixedZone(name, off))
}

func (z *TZ) String() string {
	b := strings.Builder{}
	b.WriteString(tzName(z.StdName))
	b.WriteString(tzClock(-z.StdOffset))
	if z.HasDST() {
		b.WriteString(tzName(z.DstName))
		if z.DstOffset != z.StdOffset+3600 {
			b.WriteString(tzClock(-z.DstOffset))
		}
		b.WriteByte(',')
		b.WriteString(z.Start.String())
		b.WriteByte(',')
		b.WriteString(z.End.String())
	}
	return b.String()
}

func (r TZRule) String() string {
	var s string
	switch r.Kind {
	case 'J':
		s = fmt.Sprintf("J%d", r.Day)
	case 'D':
		s = fmt.Sprintf("%d", r.Day)
	case 'M':
		s = fmt.Sprintf("M%d.%d.%d", r.Month, r.Week, r.Weekday)
	}
	if r.Time != tzDefaultRuleTime {
		s += "/" + tzClock(r.Time)
	}
	return s
}

// wall returns local wall clock of transition in year, expressed in UTC location.
func (r TZRule) wall(year int) time.Time {
	var day time.Time
	switch r.Kind {
	case 'J':
		n := r.Day - 1
		if isLeap(year) && r.Day >= 60 {
			n++
		}
		day = time.Date(year, time.January, 1+n, 0, 0, 0, 0, time.UTC)
	case 'D':
		day = time.Date(year, time.January, 1+r.Day, 0, 0, 0, 0, time.UTC)
	case 'M':
		first := time.Date(year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC)
		d := 1 + (r.Weekday-int(first.Weekday())+7)%7 + (r.Week-1)*7
		dim := time.Date(year, time.Month(r.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
		for d > dim {
			d -= 7
		}
		day = time.Date(year, time.Month(r.Month), d, 0, 0, 0, 0, time.UTC)
	}
	return day.Add(time.Duration(r.Time) * time.Second)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

type tzParser struct {
	s string
	i int
}

func (p *tzParser) eof() bool { return p.i >= len(p.s) }
func (p *tzParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.i]
}

func (p *tzParser) parse() (*TZ, error) {
	z := &TZ{}
	var err error
	if z.StdName, err = p.name(); err != nil {
		return nil, err
	}
	off, err := p.clock(24)
	if err != nil {
		return nil, errors.Annotate(err, "std offset")
	}
	z.StdOffset = -off
	if p.eof() {
		return z, nil
	}

	if z.DstName, err = p.name(); err != nil {
		return nil, err
	}
	z.DstOffset = z.StdOffset + 3600
	if !p.eof() && p.peek() != ',' {
		off, err = p.clock(24)
		if err != nil {
			return nil, errors.Annotate(err, "dst offset")
		}
		z.DstOffset = -off
	}
	if p.eof() {
		z.Start, z.End = tzDefaultRules[0], tzDefaultRules[1]
		return z, nil
	}

	if z.Start, err = p.rule(); err != nil {
		return nil, errors.Annotate(err, "dst start")
	}
	if z.End, err = p.rule(); err != nil {
		return nil, errors.Annotate(err, "dst end")
	}
	if !p.eof() {
		return nil, errors.Errorf("unexpected '%s' at %d", p.s[p.i:], p.i)
	}
	return z, nil
}

func (p *tzParser) name() (string, error) {
	if p.peek() == '<' {
		end := strings.IndexByte(p.s[p.i:], '>')
		if end < 0 {
			return "", errors.Errorf("unterminated <name> at %d", p.i)
		}
		name := p.s[p.i+1 : p.i+end]
		for j := 0; j < len(name); j++ {
			c := name[j]
			if !(isAlpha(c) || isDigit(c) || c == '+' || c == '-') {
				return "", errors.Errorf("invalid character '%c' in <%s>", c, name)
			}
		}
		if len(name) < 3 {
			return "", errors.Errorf("zone name <%s> shorter than 3", name)
		}
		p.i += end + 1
		return name, nil
	}
	start := p.i
	for !p.eof() && isAlpha(p.peek()) {
		p.i++
	}
	if p.i-start < 3 {
		return "", errors.Errorf("zone name at %d must have 3 or more letters", start)
	}
	return p.s[start:p.i], nil
}

// clock parses [+-]hh[:mm[:ss]] into seconds.
func (p *tzParser) clock(maxHours int) (int, error) {
	sign := 1
	switch p.peek() {
	case '+':
		p.i++
	case '-':
		sign = -1
		p.i++
	}
	h, err := p.number()
	if err != nil {
		return 0, err
	}
	if h > maxHours {
		return 0, errors.Errorf("hours=%d > %d", h, maxHours)
	}
	total := h * 3600
	for _, mul := range []int{60, 1} {
		if p.peek() != ':' {
			break
		}
		p.i++
		n, err := p.number()
		if err != nil {
			return 0, err
		}
		if n > 59 {
			return 0, errors.Errorf("minutes or seconds=%d > 59", n)
		}
		total += n * mul
	}
	return sign * total, nil
}

func (p *tzParser) number() (int, error) {
	start := p.i
	n := 0
	for !p.eof() && isDigit(p.peek()) {
		n = n*10 + int(p.peek()-'0')
		p.i++
		if p.i-start > 3 {
			return 0, errors.Errorf("number too long at %d", start)
		}
	}
	if p.i == start {
		return 0, errors.Errorf("expected number at %d", start)
	}
	return n, nil
}

func (p *tzParser) rule() (TZRule, error) {
	if p.peek() != ',' {
		return TZRule{}, errors.Errorf("expected ',' at %d", p.i)
	}
	p.i++
	r := TZRule{Time: tzDefaultRuleTime}
	var err error
	switch p.peek() {
	case 'J':
		p.i++
		r.Kind = 'J'
		if r.Day, err = p.number(); err != nil {
			return r, err
		}
		if r.Day < 1 || r.Day > 365 {
			return r, errors.Errorf("julian day=%d outside 1..365", r.Day)
		}
	case 'M':
		p.i++
		r.Kind = 'M'
		if r.Month, err = p.number(); err != nil {
			return r, err
		}
		if err = p.expect('.'); err != nil {
			return r, err
		}
		if r.Week, err = p.number(); err != nil {
			return r, err
		}
		if err = p.expect('.'); err != nil {
			return r, err
		}
		if r.Weekday, err = p.number(); err != nil {
			return r, err
		}
		if r.Month < 1 || r.Month > 12 || r.Week < 1 || r.Week > 5 || r.Weekday > 6 {
			return r, errors.Errorf("rule M%d.%d.%d out of range", r.Month, r.Week, r.Weekday)
		}
	default:
		r.Kind = 'D'
		if r.Day, err = p.number(); err != nil {
			return r, err
		}
		if r.Day > 365 {
			return r, errors.Errorf("day=%d outside 0..365", r.Day)
		}
	}
	if p.peek() == '/' {
		p.i++
		// POSIX allows 0..24, RFC 8536 extends to -167..167
		if r.Time, err = p.clock(167); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (p *tzParser) expect(c byte) error {
	if p.peek() != c {
		return errors.Errorf("expected '%c' at %d", c, p.i)
	}
	p.i++
	return nil
}

func tzName(name string) string {
	for i := 0; i < len(name); i++ {
		if !isAlpha(name[i]) {
			return "<" + name + ">"
		}
	}
	return name
}

func tzClock(sec int) string {
	sign := ""
	if sec < 0 {
		sign = "-"
		sec = -sec
	}
	h, m, s := sec/3600, sec/60%60, sec%60
	switch {
	case s != 0:
		return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	case m != 0:
		return fmt.Sprintf("%s%d:%02d", sign, h, m)
	}
	return fmt.Sprintf("%s%d", sign, h)
}

func isAlpha(c byte) bool { return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }
func isDigit(c byte) bool { return '0' <= c && c <= '9' }
