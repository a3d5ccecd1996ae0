// Support sub-commands in termconf application.
// It's simple but fine so far.
package subcmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"sort"

	"github.com/juju/errors"
	"github.com/temoto/termconf/helpers/cli"
	"github.com/temoto/termconf/internal/state"
	"github.com/temoto/termconf/internal/terminal"
	"github.com/temoto/termconf/log2"
)

type Mod struct {
	Name  string
	Usage string
	// NoConfig commands run without loading configuration sources.
	NoConfig bool
	Main     func(ctx context.Context, env *Env, args []string) error
}

// Env is what sub-command gets from main.
type Env struct {
	Log    *log2.Log
	Board  terminal.Board
	Stdout io.Writer
	Asker  cli.Asker
	// Config is nil for NoConfig commands.
	Config *state.Config
	// Load reads configuration sources named by -config flag.
	Load func() (*state.Config, error)
	// ConfigSet is true when -config flag was given explicitly.
	ConfigSet bool
}

// Table resolves and validates loaded configuration.
func (env *Env) Table() (*terminal.Table, error) {
	if env.Config == nil {
		return nil, errors.New("code error Table() without config")
	}
	return env.Config.Table(env.Board)
}

// FlagSet returns parser that reports errors instead of exit, usage goes to w.
func FlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if w == nil {
		w = ioutil.Discard
	}
	fs.SetOutput(w)
	return fs
}

func Parse(command string, modules []Mod) (*Mod, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command")
	}

	var found *Mod
	for i := range modules {
		m := &modules[i]
		if m.Name == "" {
			panic(fmt.Sprintf("code error Name='' module=%#v", m))
		}
		if command == m.Name {
			found = m
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("unknown command='%s'", command)
	}
	return found, nil
}

func Usage(w io.Writer, modules []Mod) {
	sorted := append([]Mod(nil), modules...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Name < sorted[b].Name })
	for _, m := range sorted {
		fmt.Fprintf(w, "  %-10s %s\n", m.Name, m.Usage)
	}
}
