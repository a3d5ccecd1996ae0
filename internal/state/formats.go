package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/termconf/helpers"
	"github.com/temoto/termconf/internal/header"
	"github.com/temoto/termconf/internal/terminal"
	"gopkg.in/ini.v1"
)

func decodeHCL(b []byte) (*terminal.Source, []ConfigSource, []string, error) {
	src := &terminal.Source{}
	if err := hcl.Unmarshal(b, src); err != nil {
		return nil, nil, nil, err
	}
	var x struct {
		Include []ConfigSource `hcl:"include"`
	}
	if err := hcl.Unmarshal(b, &x); err != nil {
		return nil, nil, nil, err
	}
	return src, x.Include, nil, nil
}

func decodeHeader(b []byte) (*terminal.Source, []ConfigSource, []string, error) {
	f, err := header.ParseBytes(b)
	if err != nil {
		return nil, nil, nil, err
	}
	src, warnings, err := header.Decode(f)
	return src, nil, warnings, err
}

// decodeJSON reads provisioning JSON, same schema as provision.Payload output.
func decodeJSON(b []byte) (*terminal.Source, []ConfigSource, []string, error) {
	src := &terminal.Source{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(src); err != nil {
		return nil, nil, nil, errors.Annotate(err, "json")
	}
	return src, nil, nil, nil
}

// decodeINI reads `[section]` `field = value` pairs named by setting keys,
// e.g. `[wifi] ssid = IoT`.
func decodeINI(b []byte) (*terminal.Source, []ConfigSource, []string, error) {
	f, err := ini.Load(b)
	if err != nil {
		return nil, nil, nil, errors.Annotate(err, "ini")
	}
	src := &terminal.Source{}
	var warnings []string
	errs := make([]error, 0)
	for _, section := range f.Sections() {
		for _, key := range section.Keys() {
			st, ok := terminal.LookupKey(section.Name() + "." + key.Name())
			if !ok {
				warnings = append(warnings, fmt.Sprintf("unknown key [%s] %s ignored", section.Name(), key.Name()))
				continue
			}
			v, err := terminal.ParseValue(st, key.String())
			if err == nil {
				err = src.Set(st, v)
			}
			if err != nil {
				errs = append(errs, errors.Annotatef(err, "[%s] %s", section.Name(), key.Name()))
			}
		}
	}
	return src, nil, warnings, helpers.FoldErrors(errs)
}
