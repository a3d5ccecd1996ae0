package terminal

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/temoto/termconf/helpers"
)

const PunchPath = "/api/terminal/punch"

// Report is result of Validate. Errors make the table unusable,
// warnings are worth a look before flashing.
type Report struct {
	Errors   []error
	Warnings []string
	Aliases  []Alias
}

func (r *Report) Err() error { return helpers.FoldErrors(r.Errors) }

func (r *Report) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, errors.Errorf(format, args...))
}
func (r *Report) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
func (r *Report) add(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

func (r Report) clone() Report {
	return Report{
		Errors:   append([]error(nil), r.Errors...),
		Warnings: append([]string(nil), r.Warnings...),
		Aliases:  cloneAliases(r.Aliases),
	}
}

func cloneAliases(as []Alias) []Alias {
	if as == nil {
		return nil
	}
	result := make([]Alias, len(as))
	for i := range as {
		result[i] = as[i].clone()
	}
	return result
}

// Validate checks structural consistency of the whole table.
func Validate(c Config, board Board) Report {
	r := Report{}
	validateNetwork(&r, &c.Network)
	validateReader(&r, &c.Reader)
	validatePins(&r, &c, &board)
	validateDisplay(&r, &c.Display)
	validateLocale(&r, &c.Locale)
	return r
}

func validateNetwork(r *Report, n *Network) {
	switch l := len(n.SSID); {
	case l == 0:
		r.errorf("wifi.ssid is empty")
	case l > 32:
		r.errorf("wifi.ssid length=%d > 32 bytes", l)
	}

	switch l := len(n.Password); {
	case l == 0:
		r.warnf("wifi.password is empty, terminal expects open network")
	case l == 64 && helpers.IsHex(n.Password):
		// raw PSK
	case l < 8 || l > 63:
		r.errorf("wifi.password length=%d, WPA2 passphrase must be 8..63 characters", l)
	}

	u, err := url.Parse(n.Endpoint)
	switch {
	case err != nil:
		r.add(errors.Annotatef(err, "server.endpoint"))
	case u.Scheme != "http" && u.Scheme != "https":
		r.errorf("server.endpoint='%s' scheme must be http or https", n.Endpoint)
	case u.Host == "":
		r.errorf("server.endpoint='%s' has no host", n.Endpoint)
	default:
		if tls := u.Scheme == "https"; tls != n.UseTLS {
			r.errorf("server.use_tls=%t disagrees with endpoint scheme %s", n.UseTLS, u.Scheme)
		}
		if !strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), PunchPath) {
			r.warnf("server.endpoint path='%s' does not end with %s", u.Path, PunchPath)
		}
	}

	switch {
	case !helpers.IsHex(n.TerminalKey):
		r.errorf("server.terminal_key must be hex digits")
	case len(n.TerminalKey) < KeyMinLength:
		r.errorf("server.terminal_key length=%d < %d", len(n.TerminalKey), KeyMinLength)
	case len(n.TerminalKey) != KeyBytes*2:
		r.warnf("server.terminal_key length=%d, server generates %d", len(n.TerminalKey), KeyBytes*2)
	}
}

func validateReader(r *Report, rd *Reader) {
	if !containsReaderType(rd.Type) {
		r.errorf("reader.type='%s' valid: %s", rd.Type, joinStrings(ReaderTypes))
	}
	if !containsBusMode(rd.PN532Mode) {
		r.errorf("reader.pn532_mode='%s' valid: %s", rd.PN532Mode, joinStrings(BusModes))
	}
}

func validatePins(r *Report, c *Config, board *Board) {
	active := c.ActiveRoles()
	for _, a := range c.PinAssignments() {
		if err := board.CheckPin(a.Role, a.Pin); err != nil {
			r.add(err)
			continue
		}
		if !a.Role.Input() && !board.CanOutput(a.Pin) {
			if active[a.Role] {
				r.errorf("%s=%d GPIO%d is input-only on %s", a.Role, a.Pin, a.Pin, board.Name)
			} else {
				r.warnf("%s=%d GPIO%d is input-only on %s (role unused)", a.Role, a.Pin, a.Pin, board.Name)
			}
		}
	}

	r.Aliases = Aliases(*c)
	for i := range r.Aliases {
		alias := &r.Aliases[i]
		for _, pair := range alias.Conflicts {
			r.errorf("pin=%d shared by %s and %s without documented sharing", alias.Pin, pair[0], pair[1])
		}
		for _, pair := range alias.Undocumented {
			if !containsPair(alias.Conflicts, pair) {
				r.warnf("pin=%d shared by %s and %s (not both in use)", alias.Pin, pair[0], pair[1])
			}
		}
		for _, s := range alias.Flagged() {
			r.warnf("pin=%d shared by %s and %s: %s", alias.Pin, s.A, s.B, s.Reason)
		}
	}
}

func validateDisplay(r *Report, d *Display) {
	if d.Rows < 1 || d.Rows > 4 {
		r.errorf("display.rows=%d valid: 1..4", d.Rows)
	}
	addr, err := d.AddressByte()
	switch {
	case err != nil:
		r.add(err)
	case addr > 0x7f:
		r.errorf("display.address=%s outside 7-bit I2C range 0x00..0x7f", d.Address)
	case addr <= 0x07 || addr >= 0x78:
		r.warnf("display.address=%s is in I2C reserved range", d.Address)
	}

	cols := d.Columns()
	if n := utf8.RuneCountInString(d.IdleLine1); n > cols {
		r.errorf("display.idle_line1 length=%d > %d columns", n, cols)
	}
	for _, c := range d.IdleLine1 {
		if c < 0x20 || c > 0x7e {
			r.warnf("display.idle_line1 contains non-ASCII character %q, LCD ROM may not have it", c)
			break
		}
	}
}

func validateLocale(r *Report, l *Locale) {
	if _, err := ParseTZ(l.Timezone); err != nil {
		r.add(err)
	}
	if !validHost(l.NTPServer) {
		r.errorf("time.ntp_server='%s' is not valid hostname or IP", l.NTPServer)
	}
}

func validHost(s string) bool {
	if net.ParseIP(s) != nil {
		return true
	}
	if len(s) == 0 || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(s, "."), ".") {
		if len(label) == 0 || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if !(isAlpha(c) || isDigit(c) || c == '-') {
				return false
			}
		}
	}
	return true
}

func containsReaderType(t ReaderType) bool {
	for _, x := range ReaderTypes {
		if x == t {
			return true
		}
	}
	return false
}

func containsBusMode(m BusMode) bool {
	for _, x := range BusModes {
		if x == m {
			return true
		}
	}
	return false
}

func containsPair(ps []RolePair, p RolePair) bool {
	for _, x := range ps {
		if x == p {
			return true
		}
	}
	return false
}

func joinStrings(xs interface{}) string {
	var ss []string
	switch v := xs.(type) {
	case []ReaderType:
		for _, x := range v {
			ss = append(ss, string(x))
		}
	case []BusMode:
		for _, x := range v {
			ss = append(ss, string(x))
		}
	}
	return strings.Join(ss, ", ")
}
