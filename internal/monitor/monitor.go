// Package monitor follows the terminal serial console, like the IDE serial
// monitor at 115200 baud, and forwards firmware log lines.
package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/termconf/log2"
	"go.bug.st/serial"
)

const DefaultBaud = 115200

type OpenFunc func(name string, baud int) (io.ReadCloser, error)

// OpenSerial opens port in 8N1 mode.
func OpenSerial(name string, baud int) (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, errors.Annotatef(err, "serial open port=%s baud=%d", name, baud)
	}
	return port, nil
}

// Ports lists serial ports present in the system, sorted.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Annotate(err, "serial ports list")
	}
	sort.Strings(ports)
	return ports, nil
}

type Monitor struct {
	Port string
	Baud int
	// Open nil means OpenSerial.
	Open OpenFunc
	// Out receives every line with receive timestamp.
	Out io.Writer
	Log *log2.Log

	alive *alive.Alive
	mu    sync.Mutex
	lines uint64
	errs  uint64
}

type Stats struct {
	Lines  uint64
	Errors uint64
}

// Run reads port until Stop, context cancel or EOF.
func (self *Monitor) Run(ctx context.Context) error {
	baud := self.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	open := self.Open
	if open == nil {
		open = OpenSerial
	}
	port, err := open(self.Port, baud)
	if err != nil {
		return err
	}
	self.mu.Lock()
	self.alive = alive.NewAlive()
	a := self.alive
	self.mu.Unlock()
	self.Log.Infof("monitor port=%s baud=%d", self.Port, baud)

	go func() {
		select {
		case <-ctx.Done():
			a.Stop()
		case <-a.StopChan():
		}
		port.Close()
	}()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		self.handle(time.Now(), strings.TrimRight(scanner.Text(), "\r"))
	}
	stopped := !a.IsRunning()
	a.Stop()
	if err = scanner.Err(); err != nil && !stopped {
		return errors.Annotatef(err, "monitor port=%s", self.Port)
	}
	return nil
}

func (self *Monitor) Stop() {
	self.mu.Lock()
	a := self.alive
	self.mu.Unlock()
	if a != nil {
		a.Stop()
	}
}

func (self *Monitor) Stats() Stats {
	self.mu.Lock()
	defer self.mu.Unlock()
	return Stats{Lines: self.lines, Errors: self.errs}
}

func (self *Monitor) handle(t time.Time, line string) {
	level := ParseLevel(line)
	self.mu.Lock()
	self.lines++
	if level == 'E' {
		self.errs++
	}
	self.mu.Unlock()

	if self.Out != nil {
		fmt.Fprintf(self.Out, "%s %s\n", t.Format("15:04:05.000"), line)
	}
	switch level {
	case 'E':
		self.Log.Errorf("terminal: %s", line)
	case 'W':
		self.Log.Warningf("terminal: %s", line)
	default:
		self.Log.Debugf("terminal: %s", line)
	}
}

// ESP-IDF log format: "E (1234) wifi: message", optionally ANSI colored.
var reIDFLine = regexp.MustCompile(`^(?:\x1b\[[0-9;]*m)?([EWIDV]) \((\d+)\) `)

// ParseLevel returns ESP-IDF log level letter or 0 for plain lines.
func ParseLevel(line string) byte {
	m := reIDFLine.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	return m[1][0]
}
