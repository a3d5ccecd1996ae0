package terminal

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindString Kind = iota + 1
	KindBool
	KindInt
	// KindHexByte is written as string literal, e.g. "0x27".
	KindHexByte
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindHexByte:
		return "hex byte"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Literal returns the kind of literal that carries values of this kind.
func (k Kind) Literal() Kind {
	if k == KindHexByte {
		return KindString
	}
	return k
}

type Group string

const (
	GroupNetwork Group = "network"
	GroupReader  Group = "reader"
	GroupPins    Group = "pins"
	GroupDisplay Group = "display"
	GroupLocale  Group = "locale"
)

var Groups = []Group{GroupNetwork, GroupReader, GroupPins, GroupDisplay, GroupLocale}

// Value is one typed literal. Kind is always a literal kind: string, bool or int.
type Value struct {
	Kind Kind
	S    string
	B    bool
	I    int
}

func StringValue(s string) Value { return Value{Kind: KindString, S: s} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, B: b} }
func IntValue(i int) Value       { return Value{Kind: KindInt, I: i} }

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.S)
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindInt:
		return strconv.Itoa(v.I)
	}
	return "<invalid>"
}

// Setting describes one named entry of the configuration table.
type Setting struct {
	// Name as seen by firmware, e.g. LOCAL_WIFI_SSID
	Name string
	// Key is section.key path used by HCL, INI and error messages.
	Key    string
	Kind   Kind
	Secret bool
	Group  Group

	ref func(*Source) interface{}
}

func (s *Setting) String() string { return s.Name }

// Section and field parts of Key.
func (s *Setting) Section() string { return s.Key[:strings.IndexByte(s.Key, '.')] }
func (s *Setting) Field() string   { return s.Key[strings.IndexByte(s.Key, '.')+1:] }

var settings = []*Setting{
	{Name: "LOCAL_WIFI_SSID", Key: "wifi.ssid", Kind: KindString, Group: GroupNetwork,
		ref: func(s *Source) interface{} { return &s.Wifi.SSID }},
	{Name: "LOCAL_WIFI_PASSWORD", Key: "wifi.password", Kind: KindString, Secret: true, Group: GroupNetwork,
		ref: func(s *Source) interface{} { return &s.Wifi.Password }},
	{Name: "LOCAL_SERVER_ENDPOINT", Key: "server.endpoint", Kind: KindString, Group: GroupNetwork,
		ref: func(s *Source) interface{} { return &s.Server.Endpoint }},
	{Name: "LOCAL_USE_TLS", Key: "server.use_tls", Kind: KindBool, Group: GroupNetwork,
		ref: func(s *Source) interface{} { return &s.Server.UseTLS }},
	{Name: "LOCAL_TERMINAL_KEY", Key: "server.terminal_key", Kind: KindString, Secret: true, Group: GroupNetwork,
		ref: func(s *Source) interface{} { return &s.Server.TerminalKey }},

	{Name: "LOCAL_READER_TYPE", Key: "reader.type", Kind: KindString, Group: GroupReader,
		ref: func(s *Source) interface{} { return &s.Reader.Type }},
	{Name: "LOCAL_PN532_MODE", Key: "reader.pn532_mode", Kind: KindString, Group: GroupReader,
		ref: func(s *Source) interface{} { return &s.Reader.PN532Mode }},

	{Name: "LOCAL_PIN_SDA", Key: "pins.sda", Kind: KindInt, Group: GroupPins,
		ref: func(s *Source) interface{} { return &s.Pins.SDA }},
	{Name: "LOCAL_PIN_SCL", Key: "pins.scl", Kind: KindInt, Group: GroupPins,
		ref: func(s *Source) interface{} { return &s.Pins.SCL }},
	{Name: "LOCAL_PIN_MOSI", Key: "pins.mosi", Kind: KindInt, Group: GroupPins,
		ref: func(s *Source) interface{} { return &s.Pins.MOSI }},
	{Name: "LOCAL_PIN_MISO", Key: "pins.miso", Kind: KindInt, Group: GroupPins,
		ref: func(s *Source) interface{} { return &s.Pins.MISO }},
	{Name: "LOCAL_PIN_SCK", Key: "pins.sck", Kind: KindInt, Group: GroupPins,
		ref: func(s *Source) interface{} { return &s.Pins.SCK }},
	{Name: "LOCAL_PIN_SS", Key: "pins.ss", Kind: KindInt, Group: GroupPins,
		ref: func(s *Source) interface{} { return &s.Pins.SS }},
	{Name: "LOCAL_PIN_RST", Key: "pins.rst", Kind: KindInt, Group: GroupPins,
		ref: func(s *Source) interface{} { return &s.Pins.RST }},
	{Name: "LOCAL_PIN_IRQ", Key: "pins.irq", Kind: KindInt, Group: GroupPins,
		ref: func(s *Source) interface{} { return &s.Pins.IRQ }},

	{Name: "LOCAL_DISPLAY_ENABLED", Key: "display.enabled", Kind: KindBool, Group: GroupDisplay,
		ref: func(s *Source) interface{} { return &s.Display.Enabled }},
	{Name: "LOCAL_DISPLAY_ROWS", Key: "display.rows", Kind: KindInt, Group: GroupDisplay,
		ref: func(s *Source) interface{} { return &s.Display.Rows }},
	{Name: "LOCAL_DISPLAY_SDA", Key: "display.sda", Kind: KindInt, Group: GroupDisplay,
		ref: func(s *Source) interface{} { return &s.Display.SDA }},
	{Name: "LOCAL_DISPLAY_SCL", Key: "display.scl", Kind: KindInt, Group: GroupDisplay,
		ref: func(s *Source) interface{} { return &s.Display.SCL }},
	{Name: "LOCAL_DISPLAY_ADDRESS", Key: "display.address", Kind: KindHexByte, Group: GroupDisplay,
		ref: func(s *Source) interface{} { return &s.Display.Address }},
	{Name: "LOCAL_IDLE_LINE1", Key: "display.idle_line1", Kind: KindString, Group: GroupDisplay,
		ref: func(s *Source) interface{} { return &s.Display.IdleLine1 }},

	{Name: "LOCAL_TIMEZONE", Key: "time.timezone", Kind: KindString, Group: GroupLocale,
		ref: func(s *Source) interface{} { return &s.Time.Timezone }},
	{Name: "LOCAL_NTP_SERVER", Key: "time.ntp_server", Kind: KindString, Group: GroupLocale,
		ref: func(s *Source) interface{} { return &s.Time.NTPServer }},
}

var (
	byName = make(map[string]*Setting, len(settings))
	byKey  = make(map[string]*Setting, len(settings))
)

func init() {
	for _, s := range settings {
		if _, dup := byName[s.Name]; dup {
			panic("code error duplicate setting name=" + s.Name)
		}
		if _, dup := byKey[s.Key]; dup {
			panic("code error duplicate setting key=" + s.Key)
		}
		byName[s.Name] = s
		byKey[s.Key] = s
	}
}

// Settings returns all settings in table order.
func Settings() []*Setting {
	return append([]*Setting(nil), settings...)
}

func Lookup(name string) (*Setting, bool) {
	s, ok := byName[name]
	return s, ok
}

func LookupKey(key string) (*Setting, bool) {
	s, ok := byKey[key]
	return s, ok
}

// MustLookup panics on unknown name, for code paths with constant names.
func MustLookup(name string) *Setting {
	s, ok := byName[name]
	if !ok {
		panic("code error unknown setting name=" + name)
	}
	return s
}
