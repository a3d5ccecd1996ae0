package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/termconf/cmd/termconf/subcmd"
	"github.com/temoto/termconf/internal/header"
	"github.com/temoto/termconf/internal/terminal"
	"gopkg.in/yaml.v2"
)

var RenderMod = subcmd.Mod{Name: "render", Usage: "write canonical config_local.h", Main: RenderMain}
var ShowMod = subcmd.Mod{Name: "show", Usage: "print resolved settings as text, json or yaml", Main: ShowMain}
var KeygenMod = subcmd.Mod{Name: "keygen", Usage: "generate terminal key, optionally store into header", NoConfig: true, Main: KeygenMain}

func RenderMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("render", env.Stdout)
	flagOut := fs.String("o", "", "output file, default stdout")
	flagBanner := fs.String("banner", header.DefaultBanner, "comment after #pragma, empty to omit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	table, err := env.Table()
	if err != nil {
		return err
	}
	for _, w := range table.Report().Warnings {
		env.Log.Warning(w)
	}
	b := header.Encode(table.Config(), header.EncodeOptions{Banner: *flagBanner}).Bytes()
	return writeOutput(env, *flagOut, b, 0600)
}

func ShowMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("show", env.Stdout)
	flagFormat := fs.String("format", "text", "text|json|yaml")
	flagSecrets := fs.Bool("secrets", false, "print password and key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := env.Config.Source.Resolve()
	if err != nil {
		return errors.Annotate(err, "config incomplete")
	}
	if !*flagSecrets {
		cfg = cfg.Redacted()
	}
	b, err := formatConfig(cfg, *flagFormat)
	if err != nil {
		return err
	}
	_, err = env.Stdout.Write(b)
	return err
}

func formatConfig(cfg terminal.Config, format string) ([]byte, error) {
	switch format {
	case "text":
		src := cfg.Source()
		var b []byte
		for _, st := range terminal.Settings() {
			v, _ := src.Get(st)
			b = append(b, fmt.Sprintf("%-22s %-19s %s\n", st.Name, st.Key, v)...)
		}
		return b, nil
	case "json":
		b, err := json.MarshalIndent(cfg, "", "  ")
		return append(b, '\n'), errors.Annotate(err, "json")
	case "yaml":
		b, err := yaml.Marshal(cfg)
		return b, errors.Annotate(err, "yaml")
	}
	return nil, errors.NotValidf("format=%s valid: text, json, yaml", format)
}

func KeygenMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("keygen", env.Stdout)
	flagSet := fs.String("set", "", "header file to update LOCAL_TERMINAL_KEY in place")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := terminal.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	if *flagSet == "" {
		fmt.Fprintln(env.Stdout, key)
		return nil
	}

	path := *flagSet
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Annotate(err, "keygen")
	}
	f, err := header.ParseBytes(b)
	if err != nil {
		return errors.Annotatef(err, "keygen file=%s", path)
	}
	f.Set(terminal.MustLookup("LOCAL_TERMINAL_KEY").Name, terminal.StringValue(key))
	if err = writeOutput(env, path, f.Bytes(), 0600); err != nil {
		return err
	}
	env.Log.Infof("keygen file=%s updated, register the new key on the server", path)
	return nil
}

// writeOutput writes b to stdout when path is empty.
func writeOutput(env *subcmd.Env, path string, b []byte, perm os.FileMode) error {
	if path == "" {
		_, err := env.Stdout.Write(b)
		return err
	}
	if err := ioutil.WriteFile(path, b, perm); err != nil {
		return errors.Annotatef(err, "write file=%s", path)
	}
	env.Log.Debugf("wrote file=%s bytes=%d", path, len(b))
	return nil
}
