package state

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/termconf/internal/terminal"
	"github.com/temoto/termconf/log2"
)

const hclBase = `
wifi { ssid = "IoT" password = "!desischmeiWlanduNudeldunger\"" }
server {
	endpoint = "http://192.168.0.100:26400/api/terminal/punch"
	use_tls = false
	terminal_key = "1f2c1770fa442a646d417bce5901fab5d685617426dbffee"
}
reader { type = "RC522" pn532_mode = "I2C" }
pins { sda = 21 scl = 22 mosi = 23 miso = 19 sck = 18 ss = 5 rst = 22 irq = 4 }
display {
	enabled = true
	rows = 4
	sda = 21
	scl = 22
	address = "0x27"
	idle_line1 = "Metallbau Kopf"
}
time { timezone = "CET-1CEST,M3.5.0/2,M10.5.0/3" ntp_server = "pool.ntp.org" }
`

const headerPartial = `#pragma once
#define LOCAL_WIFI_SSID "Werkstatt"
#define LOCAL_DISPLAY_ROWS 2
`

const jsonPartial = `{"wifi":{"ssid":"Halle"},"display":{"idleLine1":"Kopf GmbH"}}`

const iniPartial = `
[reader]
type = PN532
pn532_mode = SPI

[pins]
irq = 0x10
`

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, *Config)
		expectErr string
	}
	cases := []Case{
		{"empty", "", func(t testing.TB, c *Config) {
			assert.Empty(t, c.Source.Defined())
		}, ""},

		{"complete", hclBase, func(t testing.TB, c *Config) {
			tbl, err := c.Table(terminal.ESP32)
			require.NoError(t, err)
			cfg := tbl.Config()
			assert.Equal(t, "IoT", cfg.Network.SSID)
			assert.Equal(t, `!desischmeiWlanduNudeldunger"`, cfg.Network.Password)
			assert.Equal(t, 22, cfg.Pins.RST)
			assert.Equal(t, "Metallbau Kopf", cfg.Display.IdleLine1)
		}, ""},

		{"partial", `wifi { ssid = "x" }`, func(t testing.TB, c *Config) {
			_, err := c.Table(terminal.ESP32)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config incomplete")
			assert.Contains(t, err.Error(), "LOCAL_WIFI_PASSWORD (wifi.password) not found")
			assert.NotContains(t, err.Error(), "LOCAL_WIFI_SSID")
		}, ""},

		{"include-normalize", `
wifi { ssid = "x" }
include "./empty" {}`,
			nil, ""},

		{"include-optional", `
include "base.hcl" {}
include "non-exist" { optional = true }`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, []string{"test-inline", "base.hcl"}, c.Read)
				assert.Empty(t, c.Source.Missing())
			}, ""},

		{"include-overwrites", `
wifi { ssid = "first" }
include "base.hcl" {}`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "IoT", *c.Source.Wifi.SSID)
			}, ""},

		{"include-formats", `
include "base.hcl" {}
include "partial.h" {}
include "partial.json" {}
include "partial.ini" {}`,
			func(t testing.TB, c *Config) {
				tbl, err := c.Table(terminal.ESP32)
				require.NoError(t, err, errors.ErrorStack(err))
				cfg := tbl.Config()
				assert.Equal(t, "Halle", cfg.Network.SSID)
				assert.Equal(t, 2, cfg.Display.Rows)
				assert.Equal(t, "Kopf GmbH", cfg.Display.IdleLine1)
				assert.Equal(t, terminal.ReaderPN532, cfg.Reader.Type)
				assert.Equal(t, terminal.BusSPI, cfg.Reader.PN532Mode)
				assert.Equal(t, 16, cfg.Pins.IRQ)
				assert.Equal(t, "0x27", cfg.Display.Address)
			}, ""},

		{"ini-unknown", `include "unknown.ini" {}`, func(t testing.TB, c *Config) {
			assert.Equal(t, []string{"config source=unknown.ini: unknown key [wifi] channel ignored"}, c.Warnings)
			assert.Equal(t, "IoT", *c.Source.Wifi.SSID)
		}, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-required", `include "non-exist" {}`, nil, "config required name=non-exist path=non-exist not found"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-kind", `server { use_tls = "yes" }`, nil, "config unmarshal source=test-inline"},
		{"error-header-dup", `include "dup.h" {}`, nil, "duplicate definition LOCAL_PIN_SDA, first at line 1"},
		{"error-json-unknown", `include "unknown.json" {}`, nil, `unknown field "password"`},
		{"error-ini-value", `include "bad.ini" {}`, nil, `[server] use_tls: LOCAL_USE_TLS="maybe" expected bool`},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			t.Parallel()
			log := log2.NewTest(t, log2.LDebug)
			fs := NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"empty":        "",
				"base.hcl":     hclBase,
				"partial.h":    headerPartial,
				"partial.json": jsonPartial,
				"partial.ini":  iniPartial,
				"unknown.ini":  "[wifi]\nssid = IoT\nchannel = 6\n",
				"bad.ini":      "[server]\nuse_tls = maybe\n",
				"dup.h":        "#define LOCAL_PIN_SDA 1\n#define LOCAL_PIN_SDA 2\n",
				"unknown.json": `{"password":"flat"}`,
				"error-syntax": "hello",
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, cfg)
				}
			} else {
				if err == nil || !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		t.Run(c.name, mkCheck(c))
	}
}

func TestReadConfigLayers(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	fs := NewMockFullReader(map[string]string{
		"base.hcl":     hclBase,
		"partial.json": jsonPartial,
	})
	c, err := ReadConfig(log, fs, "base.hcl", "partial.json")
	require.NoError(t, err)
	env, err := terminal.EnvSource(func(key string) (string, bool) {
		if key == "LOCAL_WIFI_PASSWORD" {
			return "from-environment", true
		}
		return "", false
	})
	require.NoError(t, err)
	c.Apply(env)
	tbl, err := c.Table(terminal.ESP32)
	require.NoError(t, err)
	assert.Equal(t, "Halle", tbl.Config().Network.SSID)
	assert.Equal(t, "from-environment", tbl.Config().Network.Password)

	_, err = ReadConfig(log, fs, "base.hcl", "base.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config duplicate source=base.hcl")
}

func TestOsFullReader(t *testing.T) {
	t.Parallel()

	dir, err := ioutil.TempDir("", "termconf-state")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "terminal.hcl"), []byte(hclBase+`include "secret.ini" {}`), 0600))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "secret.ini"), []byte("[server]\nterminal_key = 00112233445566778899aabbccddeeff0011223344556677\n"), 0600))

	log := log2.NewTest(t, log2.LDebug)
	c := MustReadConfig(log, NewOsFullReader(), filepath.Join(dir, "terminal.hcl"))
	assert.Equal(t, []string{filepath.Join(dir, "terminal.hcl"), filepath.Join(dir, "secret.ini")}, c.Read)
	assert.Equal(t, "00112233445566778899aabbccddeeff0011223344556677", *c.Source.Server.TerminalKey)

	// second source relative to working directory, not to first source
	local, err := ioutil.TempDir(".", "termconf-local")
	require.NoError(t, err)
	defer os.RemoveAll(local)
	require.False(t, filepath.IsAbs(local))
	require.NoError(t, ioutil.WriteFile(filepath.Join(local, "local.h"), []byte("#define LOCAL_WIFI_SSID \"Halle\"\n"), 0600))
	c, err = ReadConfig(log, NewOsFullReader(), filepath.Join(dir, "terminal.hcl"), filepath.Join(local, "local.h"))
	require.NoError(t, err)
	localAbs, err := filepath.Abs(filepath.Join(local, "local.h"))
	require.NoError(t, err)
	assert.Equal(t, localAbs, c.Read[len(c.Read)-1])
	assert.Equal(t, "Halle", *c.Source.Wifi.SSID)

	b, err := NewOsFullReader().ReadAll(filepath.Join(dir, "nope"))
	assert.NoError(t, err)
	assert.Nil(t, b)
}
