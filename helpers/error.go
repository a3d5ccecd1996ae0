package helpers

import (
	"strings"

	"github.com/juju/errors"
)

// FoldErrors joins non-nil errors into one, line per error.
func FoldErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	ss := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			ss = append(ss, e.Error())
		}
	}
	if len(ss) == 0 {
		return nil
	}
	if len(ss) == 1 {
		for _, e := range errs {
			if e != nil {
				return e
			}
		}
	}
	return errors.New(strings.Join(ss, "\n"))
}
