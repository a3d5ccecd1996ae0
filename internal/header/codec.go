package header

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/termconf/helpers"
	"github.com/temoto/termconf/internal/terminal"
)

const DefaultBanner = "Generated by termconf from terminal provisioning, do not edit"

type EncodeOptions struct {
	// Banner is comment put after pragma, one "// " line per text line. Empty to omit.
	Banner string
}

// Decode maps defines to settings. Unknown names are returned as warnings.
func Decode(f *File) (*terminal.Source, []string, error) {
	src := &terminal.Source{}
	var warnings []string
	errs := make([]error, 0)
	for _, l := range f.Lines {
		if l.Kind != LineDefine {
			continue
		}
		st, ok := terminal.Lookup(l.Name)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("line %d: unknown define %s ignored", l.Number, l.Name))
			continue
		}
		if err := src.Set(st, l.Value); err != nil {
			errs = append(errs, errors.Annotatef(err, "line %d", l.Number))
		}
	}
	return src, warnings, helpers.FoldErrors(errs)
}

// Encode renders canonical header: pragma, banner, settings grouped in table order.
func Encode(cfg terminal.Config, opt EncodeOptions) *File {
	src := cfg.Source()
	b := strings.Builder{}
	b.WriteString("#pragma once\n\n")
	if opt.Banner != "" {
		for _, line := range strings.Split(opt.Banner, "\n") {
			b.WriteString(strings.TrimRight("// "+line, " ") + "\n")
		}
	}
	for i, g := range terminal.Groups {
		if i != 0 {
			b.WriteByte('\n')
		}
		for _, st := range terminal.Settings() {
			if st.Group != g {
				continue
			}
			v, _ := src.Get(st)
			b.WriteString("#define " + st.Name + " " + FormatValue(v) + "\n")
		}
	}
	f, err := ParseBytes([]byte(b.String()))
	if err != nil {
		panic("code error Encode produced invalid header: " + err.Error())
	}
	return f
}
