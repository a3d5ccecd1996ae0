package terminal

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/temoto/termconf/helpers"
)

// Source is a partially defined configuration table.
// nil field means the setting was not defined by this source.
type Source struct {
	Wifi    WifiSource    `hcl:"wifi" json:"wifi"`
	Server  ServerSource  `hcl:"server" json:"server"`
	Reader  ReaderSource  `hcl:"reader" json:"reader"`
	Pins    PinsSource    `hcl:"pins" json:"pins"`
	Display DisplaySource `hcl:"display" json:"display"`
	Time    TimeSource    `hcl:"time" json:"time"`
}

type WifiSource struct {
	SSID     *string `hcl:"ssid" json:"ssid,omitempty"`
	Password *string `hcl:"password" json:"password,omitempty"` // secret
}

type ServerSource struct {
	Endpoint    *string `hcl:"endpoint" json:"endpoint,omitempty"`
	UseTLS      *bool   `hcl:"use_tls" json:"useTls,omitempty"`
	TerminalKey *string `hcl:"terminal_key" json:"terminalKey,omitempty"` // secret
}

type ReaderSource struct {
	Type      *string `hcl:"type" json:"type,omitempty"`
	PN532Mode *string `hcl:"pn532_mode" json:"pn532Mode,omitempty"`
}

type PinsSource struct {
	SDA  *int `hcl:"sda" json:"sda,omitempty"`
	SCL  *int `hcl:"scl" json:"scl,omitempty"`
	MOSI *int `hcl:"mosi" json:"mosi,omitempty"`
	MISO *int `hcl:"miso" json:"miso,omitempty"`
	SCK  *int `hcl:"sck" json:"sck,omitempty"`
	SS   *int `hcl:"ss" json:"ss,omitempty"`
	RST  *int `hcl:"rst" json:"rst,omitempty"`
	IRQ  *int `hcl:"irq" json:"irq,omitempty"`
}

type DisplaySource struct {
	Enabled   *bool   `hcl:"enabled" json:"enabled,omitempty"`
	Rows      *int    `hcl:"rows" json:"rows,omitempty"`
	SDA       *int    `hcl:"sda" json:"sda,omitempty"`
	SCL       *int    `hcl:"scl" json:"scl,omitempty"`
	Address   *string `hcl:"address" json:"address,omitempty"`
	IdleLine1 *string `hcl:"idle_line1" json:"idleLine1,omitempty"`
}

type TimeSource struct {
	Timezone  *string `hcl:"timezone" json:"timezone,omitempty"`
	NTPServer *string `hcl:"ntp_server" json:"ntpServer,omitempty"`
}

// Get returns value of setting if defined.
func (s *Source) Get(st *Setting) (Value, bool) {
	switch p := st.ref(s).(type) {
	case **string:
		if *p == nil {
			return Value{}, false
		}
		return StringValue(**p), true
	case **bool:
		if *p == nil {
			return Value{}, false
		}
		return BoolValue(**p), true
	case **int:
		if *p == nil {
			return Value{}, false
		}
		return IntValue(**p), true
	}
	panic("code error setting ref type name=" + st.Name)
}

// Set defines setting. Literal kind must match the setting.
// Hex byte settings also take integer literal, stored in "0x27" form.
func (s *Source) Set(st *Setting, v Value) error {
	if st.Kind == KindHexByte && v.Kind == KindInt {
		if v.I < 0 || v.I > 0xff {
			return errors.NotValidf("setting=%s integer %d is not a byte", st.Name, v.I)
		}
		v = StringValue(fmt.Sprintf("0x%02X", v.I))
	}
	if v.Kind != st.Kind.Literal() {
		return errors.NotValidf("setting=%s expected %s literal, got %s %s", st.Name, st.Kind.Literal(), v.Kind, v)
	}
	switch p := st.ref(s).(type) {
	case **string:
		x := v.S
		*p = &x
	case **bool:
		x := v.B
		*p = &x
	case **int:
		x := v.I
		*p = &x
	default:
		panic("code error setting ref type name=" + st.Name)
	}
	return nil
}

// Unset removes definition.
func (s *Source) Unset(st *Setting) {
	switch p := st.ref(s).(type) {
	case **string:
		*p = nil
	case **bool:
		*p = nil
	case **int:
		*p = nil
	}
}

// Merge copies every setting defined in other over s.
func (s *Source) Merge(other *Source) {
	if other == nil {
		return
	}
	for _, st := range settings {
		if v, ok := other.Get(st); ok {
			if err := s.Set(st, v); err != nil {
				panic("code error Merge: " + err.Error())
			}
		}
	}
}

// Defined returns names of defined settings in table order.
func (s *Source) Defined() []*Setting {
	result := make([]*Setting, 0, len(settings))
	for _, st := range settings {
		if _, ok := s.Get(st); ok {
			result = append(result, st)
		}
	}
	return result
}

func (s *Source) Missing() []*Setting {
	var result []*Setting
	for _, st := range settings {
		if _, ok := s.Get(st); !ok {
			result = append(result, st)
		}
	}
	return result
}

// Resolve checks that every setting is defined and builds Config.
// Absence is an error, there are no default values.
func (s *Source) Resolve() (Config, error) {
	missing := s.Missing()
	if len(missing) != 0 {
		errs := make([]error, 0, len(missing))
		for _, st := range missing {
			errs = append(errs, errors.NotFoundf("config setting %s (%s)", st.Name, st.Key))
		}
		return Config{}, helpers.FoldErrors(errs)
	}

	c := Config{
		Network: Network{
			SSID:        *s.Wifi.SSID,
			Password:    *s.Wifi.Password,
			Endpoint:    *s.Server.Endpoint,
			UseTLS:      *s.Server.UseTLS,
			TerminalKey: *s.Server.TerminalKey,
		},
		Reader: Reader{
			Type:      ReaderType(*s.Reader.Type),
			PN532Mode: BusMode(*s.Reader.PN532Mode),
		},
		Pins: Pins{
			SDA:  *s.Pins.SDA,
			SCL:  *s.Pins.SCL,
			MOSI: *s.Pins.MOSI,
			MISO: *s.Pins.MISO,
			SCK:  *s.Pins.SCK,
			SS:   *s.Pins.SS,
			RST:  *s.Pins.RST,
			IRQ:  *s.Pins.IRQ,
		},
		Display: Display{
			Enabled:   *s.Display.Enabled,
			Rows:      *s.Display.Rows,
			SDA:       *s.Display.SDA,
			SCL:       *s.Display.SCL,
			Address:   *s.Display.Address,
			IdleLine1: *s.Display.IdleLine1,
		},
		Locale: Locale{
			Timezone:  *s.Time.Timezone,
			NTPServer: *s.Time.NTPServer,
		},
	}
	return c, nil
}
