package main

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/termconf/cmd/termconf/subcmd"
	"github.com/temoto/termconf/helpers/cli"
	"github.com/temoto/termconf/internal/state"
	"github.com/temoto/termconf/internal/terminal"
	"github.com/temoto/termconf/log2"
)

const goldenPath = "../../internal/header/testdata/config_local.h"
const goldenBanner = "Automatisch aus ESP32 Provisioning erzeugt"

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

func testEnv(t testing.TB, config string, input string) (*subcmd.Env, *bytes.Buffer) {
	log := log2.NewTest(t, log2.LDebug)
	out := &bytes.Buffer{}
	load := func() (*state.Config, error) {
		return state.ReadConfig(log, state.NewMockFullReader(map[string]string{"termconf.hcl": config}), "termconf.hcl")
	}
	env := &subcmd.Env{
		Log:    log,
		Board:  terminal.ESP32,
		Stdout: out,
		Asker:  cli.NewLineAsker(strings.NewReader(input), nil),
		Load:   load,
	}
	var err error
	env.Config, err = load()
	require.NoError(t, err)
	return env, out
}

func readGolden(t testing.TB) string {
	b, err := ioutil.ReadFile(goldenPath)
	require.NoError(t, err)
	return string(b)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		config    string
		expect    []string
		expectErr string
	}
	cases := []Case{
		{"ok", hclBase, []string{"alias ", "ok board=esp32 warnings="}, ""},
		{"bad-rows", strings.Replace(hclBase, "rows = 4", "rows = 5", 1), []string{"error: display.rows=5 valid: 1..4"}, "config invalid, 1 errors"},
		{"incomplete", `wifi { ssid = "x" }`, nil, "config incomplete"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			env, out := testEnv(t, c.config, "")
			err := ValidateMain(context.Background(), env, nil)
			if c.expectErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.expectErr)
			}
			for _, s := range c.expect {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestRender(t *testing.T) {
	t.Parallel()
	env, out := testEnv(t, hclBase, "")
	require.NoError(t, RenderMain(context.Background(), env, []string{"-banner", goldenBanner}))
	assert.Equal(t, readGolden(t), out.String())

	path := filepath.Join(t.TempDir(), "config_local.h")
	out.Reset()
	require.NoError(t, RenderMain(context.Background(), env, []string{"-o", path}))
	assert.Empty(t, out.String())
	b, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "#define LOCAL_PIN_IRQ 4\n")
}

func TestShow(t *testing.T) {
	t.Parallel()

	type Case struct {
		args      []string
		expect    []string
		reject    []string
		expectErr string
	}
	cases := []Case{
		{[]string{}, []string{"LOCAL_WIFI_SSID ", " wifi.ssid ", ` "IoT"`, `"***"`}, []string{"desischmei"}, ""},
		{[]string{"-secrets"}, []string{"1f2c1770fa442a646d417bce5901fab5d685617426dbffee"}, nil, ""},
		{[]string{"-format", "json"}, []string{`"idleLine1": "Metallbau Kopf"`, `"terminalKey": "***"`}, nil, ""},
		{[]string{"-format", "yaml"}, []string{"idle_line1: Metallbau Kopf", "pn532_mode: I2C"}, nil, ""},
		{[]string{"-format", "xml"}, nil, nil, "format=xml"},
	}
	for _, c := range cases {
		c := c
		t.Run(strings.Join(c.args, " "), func(t *testing.T) {
			t.Parallel()
			env, out := testEnv(t, hclBase, "")
			err := ShowMain(context.Background(), env, c.args)
			if c.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.expectErr)
				return
			}
			require.NoError(t, err)
			for _, s := range c.expect {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range c.reject {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func TestRoundtrip(t *testing.T) {
	t.Parallel()
	env, out := testEnv(t, "", "")
	require.NoError(t, RoundtripMain(context.Background(), env, []string{goldenPath}))
	assert.Contains(t, out.String(), "identical file="+goldenPath)
	assert.Contains(t, out.String(), "defines=23")

	err := RoundtripMain(context.Background(), env, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects one header file")
}

func TestKeygen(t *testing.T) {
	t.Parallel()
	env, out := testEnv(t, "", "")
	require.NoError(t, KeygenMain(context.Background(), env, nil))
	key := strings.TrimSpace(out.String())
	assert.Len(t, key, terminal.KeyBytes*2)

	path := filepath.Join(t.TempDir(), "config_local.h")
	require.NoError(t, ioutil.WriteFile(path, []byte(readGolden(t)), 0600))
	require.NoError(t, KeygenMain(context.Background(), env, []string{"-set", path}))
	b, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	s := string(b)
	assert.NotContains(t, s, "1f2c1770fa442a646d417bce5901fab5d685617426dbffee")
	assert.Contains(t, s, "#define LOCAL_TERMINAL_KEY \"")
	assert.Contains(t, s, "// "+goldenBanner+"\n")
}

func TestQR(t *testing.T) {
	t.Parallel()
	env, out := testEnv(t, hclBase, "")
	require.NoError(t, QRMain(context.Background(), env, []string{"-json", "-secrets=false"}))
	assert.Contains(t, out.String(), `"ssid": "IoT"`)
	assert.NotContains(t, out.String(), "terminalKey")

	out.Reset()
	require.NoError(t, QRMain(context.Background(), env, nil))
	assert.True(t, strings.Count(out.String(), "\n") > 20)

	err := QRMain(context.Background(), env, []string{"-level", "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level=X")
}

func TestPreview(t *testing.T) {
	t.Parallel()
	env, out := testEnv(t, hclBase, "")
	require.NoError(t, PreviewMain(context.Background(), env, []string{"-at", "2024-07-01T12:00:00Z"}))
	s := out.String()
	assert.Contains(t, s, "+--------------------+\n")
	assert.Contains(t, s, "|   Metallbau Kopf   |\n")
	assert.Contains(t, s, "|      14:00:00      |\n")

	env, out = testEnv(t, hclBase, "")
	rows, idle := 2, "Metallbau Kopf und Soehne"
	env.Config.Apply(&terminal.Source{Display: terminal.DisplaySource{Rows: &rows, IdleLine1: &idle}})
	require.NoError(t, PreviewMain(context.Background(), env, []string{"-ticks", "3"}))
	assert.Contains(t, out.String(), "  0 |")
	assert.Contains(t, out.String(), "  2 |")
}

func TestProbe(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != terminal.PunchPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Ungueltige Eingaben."}`))
	}))
	defer srv.Close()

	env, out := testEnv(t, hclBase, "")
	endpoint := srv.URL + terminal.PunchPath
	env.Config.Apply(&terminal.Source{Server: terminal.ServerSource{Endpoint: &endpoint}})
	require.NoError(t, ProbeMain(context.Background(), env, []string{"-ntp=false"}))
	assert.Contains(t, out.String(), "status=400")

	endpoint = srv.URL + "/wrong" + terminal.PunchPath
	env.Config.Apply(&terminal.Source{Server: terminal.ServerSource{Endpoint: &endpoint}})
	require.Error(t, ProbeMain(context.Background(), env, []string{"-ntp=false"}))
}

func TestWizard(t *testing.T) {
	t.Parallel()

	t.Run("keep-known", func(t *testing.T) {
		t.Parallel()
		// reader is RC522, PN532 mode is not asked
		env, out := testEnv(t, hclBase, strings.Repeat("\n", 22))
		env.Config = nil
		env.ConfigSet = true
		require.NoError(t, WizardMain(context.Background(), env, []string{"-banner", goldenBanner}))
		assert.True(t, strings.HasSuffix(out.String(), readGolden(t)))
	})

	t.Run("fresh", func(t *testing.T) {
		t.Parallel()
		answers := []string{
			"Halle", "geheim123", "https://zeit.example.de/api/terminal/punch", "", "", "",
			"", "", "", "", "", "", "", "",
			"", "vier", "4", "", "", "", "Kopf",
			"", "",
		}
		env, out := testEnv(t, "", strings.Join(answers, "\n")+"\n")
		require.NoError(t, WizardMain(context.Background(), env, nil))
		s := out.String()
		assert.Contains(t, s, "error: ")
		assert.Contains(t, s, "#define LOCAL_USE_TLS true\n")
		assert.Contains(t, s, "#define LOCAL_IDLE_LINE1 \"Kopf\"\n")
		assert.Regexp(t, `#define LOCAL_TERMINAL_KEY "[0-9a-f]{48}"`, s)
	})

	t.Run("empty-string", func(t *testing.T) {
		t.Parallel()
		answers := make([]string, 22)
		answers[1] = `""`  // open network
		answers[19] = `""` // no idle text
		env, out := testEnv(t, hclBase, strings.Join(answers, "\n")+"\n")
		env.Config = nil
		env.ConfigSet = true
		require.NoError(t, WizardMain(context.Background(), env, nil))
		s := out.String()
		assert.Contains(t, s, "warning: wifi.password is empty")
		assert.Contains(t, s, "#define LOCAL_WIFI_PASSWORD \"\"\n")
		assert.Contains(t, s, "#define LOCAL_IDLE_LINE1 \"\"\n")
		assert.Contains(t, s, "#define LOCAL_WIFI_SSID \"IoT\"\n")
	})

	t.Run("required", func(t *testing.T) {
		t.Parallel()
		env, _ := testEnv(t, "", "\n\n\n")
		err := WizardMain(context.Background(), env, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LOCAL_WIFI_SSID required")
	})

	t.Run("input-closed", func(t *testing.T) {
		t.Parallel()
		env, _ := testEnv(t, "", "Halle\n")
		err := WizardMain(context.Background(), env, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input closed")
	})
}

func TestRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "termconf.hcl")
	require.NoError(t, ioutil.WriteFile(path, []byte(hclBase), 0600))
	golden, err := filepath.Abs(goldenPath)
	require.NoError(t, err)

	type Case struct {
		name      string
		argv      []string
		expect    string
		expectErr string
	}
	cases := []Case{
		{"validate", []string{"-env=false", "-config", path, "validate"}, "ok board=esp32", ""},
		{"layers", []string{"-env=false", "-config", path + "," + golden, "show"}, "LOCAL_IDLE_LINE1", ""},
		{"empty-command", []string{"-config", path}, "", "empty command"},
		{"unknown-command", []string{"-config", path, "flash"}, "", "unknown command='flash'"},
		{"unknown-board", []string{"-board", "esp8266", "-config", path, "validate"}, "", "esp8266"},
		{"missing-config", []string{"-config", filepath.Join(dir, "nope.hcl"), "validate"}, "", "config required"},
		{"empty-config", []string{"-config", " , ", "validate"}, "", "empty -config"},
		{"no-config", []string{"-config", filepath.Join(dir, "nope.hcl"), "keygen"}, "", ""},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
			err := run(c.argv, stdout, stderr)
			if c.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, stdout.String(), c.expect)
		})
	}
}

func TestSplitNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a.hcl", "b.h"}, splitNames(" a.hcl ,, b.h,"))
	assert.Equal(t, []string{}, splitNames(""))
}

func TestCountErrors(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	reported := countErrors(log)
	log.Warning("not counted")
	log.Errorf("terminal: %s", "E (1234) wifi: timeout")
	log.Error(errors.New("second"))
	assert.Equal(t, 2, reported())

	clone := log.Clone(log2.LError)
	clone.Error("third")
	assert.Equal(t, 3, reported())
}
