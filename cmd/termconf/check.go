package main

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/termconf/cmd/termconf/subcmd"
	"github.com/temoto/termconf/internal/header"
	"github.com/temoto/termconf/internal/terminal"
)

var ValidateMod = subcmd.Mod{Name: "validate", Usage: "check settings, pins and aliases", Main: ValidateMain}
var RoundtripMod = subcmd.Mod{Name: "roundtrip", Usage: "file.h: check header re-serializes byte-identical", NoConfig: true, Main: RoundtripMain}

func ValidateMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("validate", env.Stdout)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range env.Config.Read {
		env.Log.Debugf("source %s", name)
	}
	cfg, err := env.Config.Source.Resolve()
	if err != nil {
		return errors.Annotate(err, "config incomplete")
	}
	report := terminal.Validate(cfg, env.Board)
	printReport(env.Stdout, report)
	if err = report.Err(); err != nil {
		return errors.Annotatef(err, "config invalid, %d errors", len(report.Errors))
	}
	fmt.Fprintf(env.Stdout, "ok board=%s warnings=%d\n", env.Board.Name, len(report.Warnings))
	return nil
}

func printReport(w io.Writer, r terminal.Report) {
	for _, a := range r.Aliases {
		fmt.Fprintf(w, "alias %s\n", a.String())
	}
	for _, s := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", s)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", e.Error())
	}
}

func RoundtripMain(ctx context.Context, env *subcmd.Env, args []string) error {
	fs := subcmd.FlagSet("roundtrip", env.Stdout)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.NotValidf("roundtrip expects one header file, got %d args", fs.NArg())
	}
	path := fs.Arg(0)
	original, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Annotate(err, "roundtrip")
	}
	f, err := header.ParseBytes(original)
	if err != nil {
		return errors.Annotatef(err, "roundtrip file=%s", path)
	}
	rendered := f.Bytes()
	if string(rendered) != string(original) {
		return errors.Errorf("roundtrip file=%s differs at byte %d", path, firstDiff(original, rendered))
	}

	// lossless is required, canonical literals are only reported
	noncanon := []string{}
	for _, l := range f.Lines {
		if l.Kind == header.LineDefine && l.Literal != header.FormatValue(l.Value) {
			noncanon = append(noncanon, fmt.Sprintf("line %d: %s literal %s canonical %s",
				l.Number, l.Name, l.Literal, header.FormatValue(l.Value)))
		}
	}
	_, warnings, err := header.Decode(f)
	if err != nil {
		return errors.Annotatef(err, "roundtrip file=%s", path)
	}
	for _, w := range append(warnings, noncanon...) {
		fmt.Fprintf(env.Stdout, "warning: %s\n", w)
	}
	fmt.Fprintf(env.Stdout, "identical file=%s bytes=%d defines=%d lines=%d\n",
		path, len(original), len(f.Names()), strings.Count(string(original), "\n"))
	return nil
}

func firstDiff(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}
