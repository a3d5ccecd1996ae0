package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/termconf/cmd/termconf/subcmd"
	"github.com/temoto/termconf/internal/header"
	"github.com/temoto/termconf/internal/terminal"
)

var WizardMod = subcmd.Mod{Name: "wizard", Usage: "ask settings one by one and write config_local.h", NoConfig: true, Main: WizardMain}

const wizardAttempts = 3

// emptyAnswer sets string setting to empty, plain Enter keeps default.
const emptyAnswer = `""`

func WizardMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("wizard", env.Stdout)
	flagOut := fs.String("o", "", "output file, default stdout")
	flagBanner := fs.String("banner", header.DefaultBanner, "comment after #pragma, empty to omit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	known := &terminal.Source{}
	if env.ConfigSet {
		c, err := env.Load()
		if err != nil {
			return err
		}
		known = &c.Source
	}
	src, err := wizardAsk(ctx, env, known)
	if err != nil {
		return err
	}

	cfg, err := src.Resolve()
	if err != nil {
		return errors.Annotate(err, "config incomplete")
	}
	report := terminal.Validate(cfg, env.Board)
	printReport(env.Stdout, report)
	if err = report.Err(); err != nil {
		return errors.Annotatef(err, "config invalid, %d errors", len(report.Errors))
	}
	b := header.Encode(cfg, header.EncodeOptions{Banner: *flagBanner}).Bytes()
	return writeOutput(env, *flagOut, b, 0600)
}

// wizardAsk walks settings in table order. Values of known are offered as
// defaults, then wiring guide suggestions.
func wizardAsk(ctx context.Context, env *subcmd.Env, known *terminal.Source) (*terminal.Source, error) {
	src := terminal.Suggestions()
	src.Merge(known)

	for _, st := range terminal.Settings() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, isKnown := known.Get(st)
		switch st.Name {
		case "LOCAL_PN532_MODE":
			if t, _ := src.Get(terminal.MustLookup("LOCAL_READER_TYPE")); t.S != string(terminal.ReaderPN532) {
				continue
			}
		case "LOCAL_USE_TLS":
			if !isKnown {
				ep, _ := src.Get(terminal.MustLookup("LOCAL_SERVER_ENDPOINT"))
				_ = src.Set(st, terminal.BoolValue(strings.HasPrefix(strings.ToLower(ep.S), "https://")))
			}
		case "LOCAL_TERMINAL_KEY":
			if !isKnown {
				key, err := terminal.GenerateKey(rand.Reader)
				if err != nil {
					return nil, err
				}
				_ = src.Set(st, terminal.StringValue(key))
				env.Log.Info("generated new terminal key, register it on the server")
			}
		case "LOCAL_PIN_RST":
			if t, _ := src.Get(terminal.MustLookup("LOCAL_READER_TYPE")); !isKnown && t.S == string(terminal.ReaderPN532) {
				_ = src.Set(st, terminal.IntValue(terminal.DefaultPN532RST))
			}
		}

		v, err := askSetting(env, st, src, isKnown)
		if err != nil {
			return nil, err
		}
		if err = src.Set(st, v); err != nil {
			return nil, err
		}
	}
	return src, nil
}

func askSetting(env *subcmd.Env, st *terminal.Setting, src *terminal.Source, isKnown bool) (terminal.Value, error) {
	current, hasDefault := src.Get(st)
	def := ""
	if hasDefault {
		def = rawValue(current)
		// known secrets are not echoed, empty answer keeps them
		if st.Secret && isKnown {
			def = "***"
		}
	}
	question := fmt.Sprintf("%s (%s)", st.Name, st.Key)
	for attempt := 1; ; attempt++ {
		answer, err := env.Asker.Ask(question, def, terminal.Choices(st))
		if err != nil {
			return terminal.Value{}, errors.Annotatef(err, "wizard setting=%s", st.Name)
		}
		answer = strings.TrimSpace(answer)
		if answer == emptyAnswer && st.Kind == terminal.KindString {
			return terminal.StringValue(""), nil
		}
		if answer == "" || (answer == def && hasDefault) {
			if hasDefault {
				return current, nil
			}
			err = errors.Errorf("%s required", st.Name)
		} else {
			var v terminal.Value
			if v, err = terminal.ParseValue(st, answer); err == nil {
				return v, nil
			}
		}
		if attempt >= wizardAttempts {
			return terminal.Value{}, errors.Annotatef(err, "wizard gave up after %d attempts", attempt)
		}
		fmt.Fprintf(env.Stdout, "error: %s\n", err.Error())
	}
}

func rawValue(v terminal.Value) string {
	if v.Kind == terminal.KindString {
		return v.S
	}
	return v.String()
}
