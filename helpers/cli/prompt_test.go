package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineAsker(t *testing.T) {
	t.Parallel()

	out := bytes.NewBuffer(nil)
	a := NewLineAsker(strings.NewReader("IoT\n\n  PN532 \r\nlast"), out)

	s, err := a.Ask("Wi-Fi SSID", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "IoT", s)

	s, err = a.Ask("Rows", "4", nil)
	require.NoError(t, err)
	assert.Equal(t, "4", s)

	s, err = a.Ask("Reader", "RC522", []string{"RC522", "PN532"})
	require.NoError(t, err)
	assert.Equal(t, "PN532", s)

	s, err = a.Ask("No newline", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "last", s)

	_, err = a.Ask("Closed", "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input closed at question 'Closed'")

	assert.Equal(t, "Wi-Fi SSID: Rows [4]: Reader [RC522]: (RC522|PN532) No newline: Closed [x]: ", out.String())
}
