// termconf builds, checks and inspects the configuration table of the ESP32
// RFID punch terminal firmware.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/juju/errors"
	"github.com/temoto/termconf/cmd/termconf/subcmd"
	"github.com/temoto/termconf/helpers/cli"
	"github.com/temoto/termconf/internal/state"
	"github.com/temoto/termconf/internal/terminal"
	"github.com/temoto/termconf/log2"
)

var log = log2.NewStderr(log2.LInfo)

var modules = []subcmd.Mod{
	ValidateMod,
	RenderMod,
	ShowMod,
	RoundtripMod,
	KeygenMod,
	QRMod,
	PreviewMod,
	ProbeMod,
	WizardMod,
	MonitorMod,
}

const defaultConfig = "termconf.hcl"

func main() {
	log.SetFlags(log2.LInteractiveFlags)
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Cause(err) == flag.ErrHelp {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(argv []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("termconf", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flagConfig := flags.String("config", defaultConfig, "comma separated sources: .hcl .h .json .ini, later override earlier")
	flagBoard := flags.String("board", terminal.ESP32.Name, "board GPIO profile")
	flagEnv := flags.Bool("env", true, "override settings from environment variables named like settings, e.g. LOCAL_WIFI_PASSWORD")
	flagDebug := flags.Bool("debug", false, "debug logging and error stacks")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: termconf [flags] command [command flags]\n\ncommands:\n")
		subcmd.Usage(stderr, modules)
		fmt.Fprintf(stderr, "\nflags:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(argv); err != nil {
		return err
	}
	// per run logger, error hook counts problems reported by commands
	log := log.Clone(log2.LInfo)
	if *flagDebug {
		log.SetLevel(log2.LDebug)
	}
	reported := countErrors(log)
	configSet := false
	flags.Visit(func(f *flag.Flag) { configSet = configSet || f.Name == "config" })

	mod, err := subcmd.Parse(flags.Arg(0), modules)
	if err != nil {
		flags.Usage()
		return err
	}
	board, err := terminal.LookupBoard(*flagBoard)
	if err != nil {
		return err
	}

	names := splitNames(*flagConfig)
	env := &subcmd.Env{
		Log:       log,
		Board:     board,
		Stdout:    stdout,
		Asker:     cli.NewAsker(),
		ConfigSet: configSet,
		Load: func() (*state.Config, error) {
			if len(names) == 0 {
				return nil, errors.NotValidf("empty -config")
			}
			c, err := state.ReadConfig(log, state.NewOsFullReader(), names...)
			if err != nil {
				return nil, err
			}
			if *flagEnv {
				envSrc, err := terminal.EnvSource(os.LookupEnv)
				if err != nil {
					return nil, err
				}
				if defined := envSrc.Defined(); len(defined) != 0 {
					log.Debugf("config environment overrides %v", defined)
				}
				c.Apply(envSrc)
			}
			for _, w := range c.Warnings {
				log.Warning(w)
			}
			return c, nil
		},
	}
	if !mod.NoConfig {
		if env.Config, err = env.Load(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		select {
		case s := <-sigch:
			log.Debugf("signal=%v", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	err = mod.Main(ctx, env, flags.Args()[1:])
	if err != nil && *flagDebug {
		log.Debug(errors.ErrorStack(err))
	}
	if n := reported(); n != 0 && err == nil {
		log.Warningf("%s finished, %d errors reported", mod.Name, n)
	}
	return errors.Annotate(err, mod.Name)
}

// countErrors hooks log Error/Errorf, e.g. error lines from terminal console.
func countErrors(log *log2.Log) func() int {
	var n int32
	log.SetErrorFunc(func(error) { atomic.AddInt32(&n, 1) })
	return func() int { return int(atomic.LoadInt32(&n)) }
}

func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
