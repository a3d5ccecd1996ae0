package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"
	"github.com/temoto/termconf/cmd/termconf/subcmd"
	"github.com/temoto/termconf/helpers"
	"github.com/temoto/termconf/internal/display"
	"github.com/temoto/termconf/internal/monitor"
	"github.com/temoto/termconf/internal/probe"
	"github.com/temoto/termconf/internal/provision"
	"github.com/temoto/termconf/internal/terminal"
)

var QRMod = subcmd.Mod{Name: "qr", Usage: "provisioning JSON as QR code", Main: QRMain}
var PreviewMod = subcmd.Mod{Name: "preview", Usage: "show idle screen of the terminal display", Main: PreviewMain}
var ProbeMod = subcmd.Mod{Name: "probe", Usage: "check punch endpoint and NTP server once", Main: ProbeMain}
var MonitorMod = subcmd.Mod{Name: "monitor", Usage: "follow terminal serial console", NoConfig: true, Main: MonitorMain}

var qrLevels = map[string]qrcode.RecoveryLevel{
	"L": qrcode.Low,
	"M": qrcode.Medium,
	"Q": qrcode.High,
	"H": qrcode.Highest,
}

func QRMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("qr", env.Stdout)
	flagOut := fs.String("o", "", "PNG file, default text to stdout")
	flagSize := fs.Int("size", 512, "PNG size in pixels")
	flagLevel := fs.String("level", "M", "error correction L|M|Q|H")
	flagSecrets := fs.Bool("secrets", true, "include Wi-Fi password and terminal key")
	flagJSON := fs.Bool("json", false, "print payload JSON instead of QR")
	if err := fs.Parse(args); err != nil {
		return err
	}
	level, ok := qrLevels[strings.ToUpper(*flagLevel)]
	if !ok {
		return errors.NotValidf("level=%s valid: L, M, Q, H", *flagLevel)
	}
	table, err := env.Table()
	if err != nil {
		return err
	}
	if *flagJSON {
		b, err := provision.Payload(table.Config(), provision.Options{Secrets: *flagSecrets, Indent: true})
		if err != nil {
			return err
		}
		return writeOutput(env, *flagOut, b, 0600)
	}
	payload, err := provision.Payload(table.Config(), provision.Options{Secrets: *flagSecrets})
	if err != nil {
		return err
	}
	if *flagOut == "" {
		s, err := provision.Text(payload, level)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(env.Stdout, s)
		return err
	}
	b, err := provision.PNG(payload, level, *flagSize)
	if err != nil {
		return err
	}
	return writeOutput(env, *flagOut, b, 0600)
}

func PreviewMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("preview", env.Stdout)
	flagCodepage := fs.String("codepage", "", "translate text like LCD ROM would, e.g. windows-1252")
	flagAt := fs.String("at", "", "RFC3339 time to show, default now")
	flagTicks := fs.Int("ticks", 0, "scroll steps to show for text wider than display")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := env.Config.Source.Resolve()
	if err != nil {
		return errors.Annotate(err, "config incomplete")
	}
	if !cfg.Display.Enabled {
		env.Log.Warning("display disabled, preview shows what it would look like")
	}
	now := time.Now()
	if *flagAt != "" {
		if now, err = time.Parse(time.RFC3339, *flagAt); err != nil {
			return errors.Annotate(err, "preview -at")
		}
	}
	tz, err := terminal.ParseTZ(cfg.Locale.Timezone)
	if err != nil {
		return err
	}
	screen, err := display.NewScreen(cfg.Display, *flagCodepage)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Stdout, screen.Idle(now, tz).Boxed())

	if !screen.Fits(cfg.Display.IdleLine1) {
		env.Log.Warningf("idle text does not fit %d columns", screen.Width())
		ticks := *flagTicks
		if ticks == 0 {
			ticks = len([]rune(cfg.Display.IdleLine1)) + screen.Width()/2
		}
		for i, line := range screen.Marquee(cfg.Display.IdleLine1, ticks) {
			fmt.Fprintf(env.Stdout, "%3d |%s|\n", i, line)
		}
	}
	return nil
}

func ProbeMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("probe", env.Stdout)
	flagTimeout := fs.Duration("timeout", probe.DefaultTimeout, "per check")
	flagAuth := fs.Bool("auth", false, "send terminal key with probe tag, server logs it as unassigned scan")
	flagNTP := fs.Bool("ntp", true, "query NTP server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	table, err := env.Table()
	if err != nil {
		return err
	}
	cfg := table.Config()

	errs := make([]error, 0, 2)
	epctx, cancel := context.WithTimeout(ctx, *flagTimeout)
	defer cancel()
	client := &http.Client{Timeout: *flagTimeout}
	result, err := probe.Endpoint(epctx, client, cfg.Network, *flagAuth)
	if err != nil {
		errs = append(errs, err)
	} else {
		fmt.Fprintln(env.Stdout, result.String())
		if result.Status == probe.StatusPunched {
			env.Log.Warningf("server recorded a punch for tag=%s, remove that time entry", probe.ProbeTag)
		}
		if !result.Status.OK() {
			errs = append(errs, errors.Errorf("endpoint=%s %s", result.URL, result.Status))
		}
	}

	if *flagNTP {
		ntpctx, cancel := context.WithTimeout(ctx, *flagTimeout)
		defer cancel()
		nr, err := probe.NTP(ntpctx, nil, cfg.Locale.NTPServer)
		if err != nil {
			errs = append(errs, err)
		} else {
			fmt.Fprintln(env.Stdout, nr.String())
		}
	}
	return helpers.FoldErrors(errs)
}

func MonitorMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("monitor", env.Stdout)
	flagPort := fs.String("port", "", "serial port, default first found")
	flagBaud := fs.Int("baud", monitor.DefaultBaud, "")
	flagList := fs.Bool("list", false, "list serial ports and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	port := *flagPort
	if *flagList || port == "" {
		ports, err := monitor.Ports()
		if err != nil {
			return err
		}
		if *flagList {
			for _, p := range ports {
				fmt.Fprintln(env.Stdout, p)
			}
			return nil
		}
		if len(ports) == 0 {
			return errors.NotFoundf("serial port")
		}
		port = ports[0]
	}
	m := &monitor.Monitor{Port: port, Baud: *flagBaud, Out: os.Stdout, Log: env.Log}
	if env.Stdout != nil {
		m.Out = env.Stdout
	}
	err := m.Run(ctx)
	stats := m.Stats()
	env.Log.Infof("monitor lines=%d errors=%d", stats.Lines, stats.Errors)
	return err
}
