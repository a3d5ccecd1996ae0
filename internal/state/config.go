// Package state loads the terminal configuration from a list of sources.
// Later sources override settings defined by earlier ones.
package state

import (
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/termconf/helpers"
	"github.com/temoto/termconf/internal/terminal"
	"github.com/temoto/termconf/log2"
)

type Config struct {
	// Source is merge of all read sources, not necessarily complete.
	Source terminal.Source
	// Read lists normalized paths in read order.
	Read []string
	// Warnings are non-fatal findings like unknown keys.
	Warnings []string

	// includeSeen contains normalized paths to prevent include loops
	includeSeen map[string]struct{}
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// Format is decoder of one source file. includes are only supported by HCL.
type Format func(b []byte) (src *terminal.Source, includes []ConfigSource, warnings []string, err error)

var formats = map[string]Format{
	".hcl":  decodeHCL,
	".h":    decodeHeader,
	".json": decodeJSON,
	".ini":  decodeINI,
}

// FormatOf picks decoder by file extension, HCL is default.
func FormatOf(name string) Format {
	if f, ok := formats[strings.ToLower(filepath.Ext(name))]; ok {
		return f
	}
	return decodeHCL
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	src, includes, warnings, err := FormatOf(norm)(bs)
	for _, w := range warnings {
		w = "config source=" + source.Name + ": " + w
		log.Debug(w)
		c.Warnings = append(c.Warnings, w)
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config unmarshal source=%s", source.Name))
		return
	}
	c.Read = append(c.Read, norm)
	c.Source.Merge(src)

	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	// includes resolve against directory of first source,
	// other sources named on command line against working directory
	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		rest := make([]string, 0, len(names)-1)
		for _, n := range names[1:] {
			abs, err := filepath.Abs(n)
			if err != nil {
				return nil, errors.Annotatef(err, "filepath.Abs() path=%s", n)
			}
			rest = append(rest, abs)
		}
		if err := osfs.SetBase(dir); err != nil {
			return nil, err
		}
		names = append([]string{name}, rest...)
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}

// Apply merges extra layer on top, e.g. environment overrides.
func (c *Config) Apply(src *terminal.Source) { c.Source.Merge(src) }

// Table resolves merged sources and validates result against board.
func (c *Config) Table(board terminal.Board) (*terminal.Table, error) {
	cfg, err := c.Source.Resolve()
	if err != nil {
		return nil, errors.Annotate(err, "config incomplete")
	}
	return terminal.NewTable(cfg, board)
}
