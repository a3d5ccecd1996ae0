package terminal

import (
	"strconv"

	"github.com/juju/errors"
	"github.com/temoto/termconf/helpers"
)

type LookupEnvFunc func(key string) (string, bool)

// EnvSource reads settings from environment variables named like settings,
// e.g. LOCAL_WIFI_PASSWORD. Intended for secrets kept out of files.
func EnvSource(lookup LookupEnvFunc) (*Source, error) {
	s := &Source{}
	errs := make([]error, 0)
	for _, st := range settings {
		raw, ok := lookup(st.Name)
		if !ok {
			continue
		}
		v, err := ParseValue(st, raw)
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "env %s", st.Name))
			continue
		}
		if err = s.Set(st, v); err != nil {
			errs = append(errs, err)
		}
	}
	return s, helpers.FoldErrors(errs)
}

// ParseValue converts untyped text (env, INI, prompt input) by setting kind.
func ParseValue(st *Setting, raw string) (Value, error) {
	switch st.Kind.Literal() {
	case KindString:
		return StringValue(raw), nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Value{}, errors.NotValidf("%s=%q expected bool", st.Name, raw)
		}
		return BoolValue(b), nil
	case KindInt:
		i, err := strconv.ParseInt(raw, 0, 32)
		if err != nil {
			return Value{}, errors.NotValidf("%s=%q expected int", st.Name, raw)
		}
		return IntValue(int(i)), nil
	}
	panic("code error ParseValue kind=" + st.Kind.String())
}
