// Package provision exports the configuration in the JSON form accepted by
// the state loader and encodes it as QR code for setup from a phone.
package provision

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"
	"github.com/temoto/termconf/internal/terminal"
)

type Options struct {
	// Secrets includes Wi-Fi password and terminal key.
	Secrets bool
	Indent  bool
}

// Payload is provisioning JSON, nested by setting key sections.
func Payload(cfg terminal.Config, opt Options) ([]byte, error) {
	src := cfg.Source()
	if !opt.Secrets {
		for _, st := range terminal.Settings() {
			if st.Secret {
				src.Unset(st)
			}
		}
	}
	var b []byte
	var err error
	if opt.Indent {
		b, err = json.MarshalIndent(src, "", "  ")
		b = append(b, '\n')
	} else {
		b, err = json.Marshal(src)
	}
	return b, errors.Annotate(err, "provision payload")
}

func QR(payload []byte, level qrcode.RecoveryLevel) (*qrcode.QRCode, error) {
	qr, err := qrcode.New(string(payload), level)
	if err != nil {
		return nil, errors.Annotatef(err, "QR length=%d", len(payload))
	}
	return qr, nil
}

// PNG renders QR image with quiet zone, size in pixels.
func PNG(payload []byte, level qrcode.RecoveryLevel, size int) ([]byte, error) {
	qr, err := QR(payload, level)
	if err != nil {
		return nil, err
	}
	b, err := qr.PNG(size)
	return b, errors.Annotate(err, "QR png")
}

// Text renders QR with block characters for terminal output.
func Text(payload []byte, level qrcode.RecoveryLevel) (string, error) {
	qr, err := QR(payload, level)
	if err != nil {
		return "", err
	}
	return qr.ToString(false), nil
}

// Size is number of modules per side without border.
func Size(qr *qrcode.QRCode) int {
	border := qr.DisableBorder
	qr.DisableBorder = true
	n := len(qr.Bitmap())
	qr.DisableBorder = border
	return n
}
