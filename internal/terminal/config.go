// Package terminal defines the configuration table of the RFID punch terminal:
// named settings, partial sources, the resolved record and its validation.
package terminal

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/termconf/helpers"
)

type ReaderType string

const (
	ReaderRC522 ReaderType = "RC522"
	ReaderPN532 ReaderType = "PN532"
)

var ReaderTypes = []ReaderType{ReaderRC522, ReaderPN532}

type BusMode string

const (
	BusI2C BusMode = "I2C"
	BusSPI BusMode = "SPI"
)

var BusModes = []BusMode{BusI2C, BusSPI}

const redacted = "***"

// Config is the resolved configuration record.
// It holds no maps or slices, so a copy never shares state with the original.
type Config struct {
	Network Network `json:"network" yaml:"network"`
	Reader  Reader  `json:"reader" yaml:"reader"`
	Pins    Pins    `json:"pins" yaml:"pins"`
	Display Display `json:"display" yaml:"display"`
	Locale  Locale  `json:"locale" yaml:"locale"`
}

type Network struct {
	SSID        string `json:"ssid" yaml:"ssid"`
	Password    string `json:"password" yaml:"password"`
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	UseTLS      bool   `json:"useTls" yaml:"use_tls"`
	TerminalKey string `json:"terminalKey" yaml:"terminal_key"`
}

type Reader struct {
	Type ReaderType `json:"type" yaml:"type"`
	// PN532Mode selects bus of PN532 boards, RC522 is always SPI.
	PN532Mode BusMode `json:"pn532Mode" yaml:"pn532_mode"`
}

// Bus actually used by the reader.
func (r Reader) Bus() BusMode {
	if r.Type == ReaderPN532 {
		return r.PN532Mode
	}
	return BusSPI
}

type Pins struct {
	SDA  int `json:"sda" yaml:"sda"`
	SCL  int `json:"scl" yaml:"scl"`
	MOSI int `json:"mosi" yaml:"mosi"`
	MISO int `json:"miso" yaml:"miso"`
	SCK  int `json:"sck" yaml:"sck"`
	SS   int `json:"ss" yaml:"ss"`
	RST  int `json:"rst" yaml:"rst"`
	IRQ  int `json:"irq" yaml:"irq"`
}

type Display struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Rows    int  `json:"rows" yaml:"rows"`
	SDA     int  `json:"sda" yaml:"sda"`
	SCL     int  `json:"scl" yaml:"scl"`
	// Address keeps original spelling, e.g. "0x27"
	Address   string `json:"address" yaml:"address"`
	IdleLine1 string `json:"idleLine1" yaml:"idle_line1"`
}

// Columns of character LCD: 1602 for up to 2 rows, 2004 otherwise.
func (d Display) Columns() int {
	if d.Rows <= 2 {
		return 16
	}
	return 20
}

func (d Display) AddressByte() (byte, error) {
	b, err := helpers.ParseHexByte(d.Address)
	return b, errors.Annotate(err, "display address")
}

type Locale struct {
	Timezone  string `json:"timezone" yaml:"timezone"`
	NTPServer string `json:"ntpServer" yaml:"ntp_server"`
}

// Role is logical signal name, equal to the pin setting key.
type Role string

const (
	RoleSDA        Role = "pins.sda"
	RoleSCL        Role = "pins.scl"
	RoleMOSI       Role = "pins.mosi"
	RoleMISO       Role = "pins.miso"
	RoleSCK        Role = "pins.sck"
	RoleSS         Role = "pins.ss"
	RoleRST        Role = "pins.rst"
	RoleIRQ        Role = "pins.irq"
	RoleDisplaySDA Role = "display.sda"
	RoleDisplaySCL Role = "display.scl"
)

func (r Role) Setting() *Setting {
	s, ok := LookupKey(string(r))
	if !ok {
		panic("code error unknown role=" + string(r))
	}
	return s
}

// Input reports whether the role only reads the pin.
func (r Role) Input() bool { return r == RoleMISO || r == RoleIRQ }

type PinAssignment struct {
	Role Role
	Pin  int
}

func (a PinAssignment) String() string { return fmt.Sprintf("%s=%d", a.Role, a.Pin) }

// PinAssignments lists every declared pin, including display bus.
func (c *Config) PinAssignments() []PinAssignment {
	return []PinAssignment{
		{RoleSDA, c.Pins.SDA},
		{RoleSCL, c.Pins.SCL},
		{RoleMOSI, c.Pins.MOSI},
		{RoleMISO, c.Pins.MISO},
		{RoleSCK, c.Pins.SCK},
		{RoleSS, c.Pins.SS},
		{RoleRST, c.Pins.RST},
		{RoleIRQ, c.Pins.IRQ},
		{RoleDisplaySDA, c.Display.SDA},
		{RoleDisplaySCL, c.Display.SCL},
	}
}

// ActiveRoles returns roles driven by firmware for selected reader and display.
func (c *Config) ActiveRoles() map[Role]bool {
	m := make(map[Role]bool, 10)
	switch c.Reader.Bus() {
	case BusI2C:
		m[RoleSDA] = true
		m[RoleSCL] = true
	default:
		m[RoleMOSI] = true
		m[RoleMISO] = true
		m[RoleSCK] = true
		m[RoleSS] = true
	}
	m[RoleRST] = true
	m[RoleIRQ] = true
	if c.Display.Enabled {
		m[RoleDisplaySDA] = true
		m[RoleDisplaySCL] = true
	}
	return m
}

// Source converts back to fully defined Source.
func (c *Config) Source() *Source {
	s := &Source{}
	set := func(name string, v Value) {
		if err := s.Set(MustLookup(name), v); err != nil {
			panic("code error " + err.Error())
		}
	}
	set("LOCAL_WIFI_SSID", StringValue(c.Network.SSID))
	set("LOCAL_WIFI_PASSWORD", StringValue(c.Network.Password))
	set("LOCAL_SERVER_ENDPOINT", StringValue(c.Network.Endpoint))
	set("LOCAL_USE_TLS", BoolValue(c.Network.UseTLS))
	set("LOCAL_TERMINAL_KEY", StringValue(c.Network.TerminalKey))
	set("LOCAL_READER_TYPE", StringValue(string(c.Reader.Type)))
	set("LOCAL_PN532_MODE", StringValue(string(c.Reader.PN532Mode)))
	for _, a := range c.PinAssignments() {
		set(a.Role.Setting().Name, IntValue(a.Pin))
	}
	set("LOCAL_DISPLAY_ENABLED", BoolValue(c.Display.Enabled))
	set("LOCAL_DISPLAY_ROWS", IntValue(c.Display.Rows))
	set("LOCAL_DISPLAY_ADDRESS", StringValue(c.Display.Address))
	set("LOCAL_IDLE_LINE1", StringValue(c.Display.IdleLine1))
	set("LOCAL_TIMEZONE", StringValue(c.Locale.Timezone))
	set("LOCAL_NTP_SERVER", StringValue(c.Locale.NTPServer))
	return s
}

// Redacted returns copy with secrets masked.
func (c Config) Redacted() Config {
	if c.Network.Password != "" {
		c.Network.Password = redacted
	}
	if c.Network.TerminalKey != "" {
		c.Network.TerminalKey = redacted
	}
	return c
}

func (c Config) String() string {
	r := c.Redacted()
	b := strings.Builder{}
	s := r.Source()
	for i, st := range settings {
		if i != 0 {
			b.WriteByte(' ')
		}
		v, _ := s.Get(st)
		fmt.Fprintf(&b, "%s=%s", st.Key, v)
	}
	return b.String()
}

// Table is the frozen configuration handle passed to consumers.
// There is no way to modify the record after NewTable.
type Table struct {
	cfg    Config
	board  Board
	report Report
}

// NewTable validates cfg against board and freezes it.
func NewTable(cfg Config, board Board) (*Table, error) {
	report := Validate(cfg, board)
	if err := report.Err(); err != nil {
		return nil, errors.Annotate(err, "config invalid")
	}
	return &Table{cfg: cfg, board: board.clone(), report: report}, nil
}

func (t *Table) Config() Config { return t.cfg }
func (t *Table) Board() Board   { return t.board.clone() }

// Report of validation done by NewTable, contains warnings and aliases.
func (t *Table) Report() Report { return t.report.clone() }
