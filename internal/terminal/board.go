package terminal

import (
	"sort"
	"strings"

	"github.com/juju/errors"
)

// Board describes GPIO capabilities of the microcontroller.
// It must not include wiring choices, those are in Config.Pins.
type Board struct {
	Name             string
	GPIOMin, GPIOMax int

	// Missing pin numbers are not bonded out.
	Missing []int
	// Reserved pins are wired to on-module flash.
	Reserved []int
	// InputOnly pins have no output driver.
	InputOnly []int
}

// ESP32 is ESP32-WROOM-32 (ESP32 Dev Module).
var ESP32 = Board{
	Name:      "esp32",
	GPIOMin:   0,
	GPIOMax:   39,
	Missing:   []int{20, 24, 28, 29, 30, 31},
	Reserved:  []int{6, 7, 8, 9, 10, 11},
	InputOnly: []int{34, 35, 36, 37, 38, 39},
}

var boards = map[string]Board{
	ESP32.Name: ESP32,
}

func LookupBoard(name string) (Board, error) {
	b, ok := boards[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(boards))
		for n := range boards {
			names = append(names, n)
		}
		sort.Strings(names)
		return Board{}, errors.NotFoundf("board=%s valid: %s", name, strings.Join(names, ", "))
	}
	return b.clone(), nil
}

func (b Board) clone() Board {
	b.Missing = append([]int(nil), b.Missing...)
	b.Reserved = append([]int(nil), b.Reserved...)
	b.InputOnly = append([]int(nil), b.InputOnly...)
	return b
}

// CheckPin returns error if pin cannot serve role on this board.
func (b *Board) CheckPin(role Role, pin int) error {
	if pin < b.GPIOMin || pin > b.GPIOMax {
		return errors.NotValidf("%s=%d outside %s GPIO range %d..%d", role, pin, b.Name, b.GPIOMin, b.GPIOMax)
	}
	if containsInt(b.Missing, pin) {
		return errors.NotValidf("%s=%d %s has no GPIO%d", role, pin, b.Name, pin)
	}
	if containsInt(b.Reserved, pin) {
		return errors.NotValidf("%s=%d GPIO%d is reserved for SPI flash on %s", role, pin, pin, b.Name)
	}
	return nil
}

// CanOutput reports whether pin has output driver.
func (b *Board) CanOutput(pin int) bool { return !containsInt(b.InputOnly, pin) }

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
