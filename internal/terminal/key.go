package terminal

import (
	"encoding/hex"
	"io"

	"github.com/juju/errors"
)

// KeyBytes is entropy of terminal key generated by the server.
const KeyBytes = 24

// KeyMinLength is shortest key accepted by the punch endpoint.
const KeyMinLength = 16

// GenerateKey returns KeyBytes of rand as lowercase hex.
func GenerateKey(rand io.Reader) (string, error) {
	buf := make([]byte, KeyBytes)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return "", errors.Annotate(err, "generate terminal key")
	}
	return hex.EncodeToString(buf), nil
}
