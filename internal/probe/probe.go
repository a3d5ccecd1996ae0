// Package probe checks once whether the servers named by configuration
// answer the way the terminal expects. There are no retries.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/ntp"
	"github.com/juju/errors"
	"github.com/temoto/termconf/internal/terminal"
)

// ProbeTag is RFID tag sent with authenticated probe, never assigned to a person.
const ProbeTag = "termconf-probe"

const DefaultTimeout = 5 * time.Second

type Status int

const (
	StatusUnknown Status = iota
	// StatusReachable: punch route answered, key not checked.
	StatusReachable
	StatusKeyAccepted
	StatusKeyRejected
	StatusWrongPath
	// StatusPunched: key accepted and server recorded a time entry for
	// whoever owns ProbeTag. Must be corrected by hand.
	StatusPunched
)

func (s Status) String() string {
	switch s {
	case StatusReachable:
		return "reachable"
	case StatusKeyAccepted:
		return "key accepted"
	case StatusKeyRejected:
		return "key rejected"
	case StatusWrongPath:
		return "wrong path"
	case StatusPunched:
		return "key accepted, punch recorded"
	}
	return "unknown"
}

func (s Status) OK() bool {
	return s == StatusReachable || s == StatusKeyAccepted || s == StatusPunched
}

type EndpointResult struct {
	URL     string
	Code    int
	Status  Status
	Message string
	RTT     time.Duration
}

func (r EndpointResult) String() string {
	s := fmt.Sprintf("endpoint=%s status=%d %s rtt=%s", r.URL, r.Code, r.Status, r.RTT.Round(time.Millisecond))
	if r.Message != "" {
		s += " message='" + r.Message + "'"
	}
	return s
}

type punchRequest struct {
	TerminalKey string `json:"terminalKey,omitempty"`
	RFIDTag     string `json:"rfidTag,omitempty"`
}

type apiMessage struct {
	Message string `json:"message"`
}

// Endpoint posts to punch URL. Without auth the body is empty object,
// server must reject it with 400. With auth the terminal key and ProbeTag are
// sent, 401 means key is unknown and 404 with JSON message means key is valid.
// Authenticated probe is recorded by server as unassigned scan.
func Endpoint(ctx context.Context, client *http.Client, network terminal.Network, auth bool) (EndpointResult, error) {
	result := EndpointResult{URL: network.Endpoint}
	body := punchRequest{}
	if auth {
		body = punchRequest{TerminalKey: network.TerminalKey, RFIDTag: ProbeTag}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return result, errors.Trace(err)
	}
	req, err := http.NewRequest(http.MethodPost, network.Endpoint, bytes.NewReader(b))
	if err != nil {
		return result, errors.Annotatef(err, "endpoint=%s", network.Endpoint)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return result, errors.Annotatef(err, "endpoint=%s", network.Endpoint)
	}
	defer resp.Body.Close()
	result.RTT = time.Since(started)
	result.Code = resp.StatusCode
	rb, err := ioutil.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return result, errors.Annotatef(err, "endpoint=%s read response", network.Endpoint)
	}
	msg, isJSON := parseMessage(resp.Header.Get("Content-Type"), rb)
	result.Message = msg

	switch code := resp.StatusCode; {
	case code == http.StatusBadRequest && !auth:
		result.Status = StatusReachable
	case code == http.StatusUnauthorized:
		result.Status = StatusKeyRejected
	case code == http.StatusNotFound && auth && isJSON:
		result.Status = StatusKeyAccepted
	case code == http.StatusNotFound, code == http.StatusMethodNotAllowed:
		result.Status = StatusWrongPath
	case auth && code >= 200 && code < 300:
		result.Status = StatusPunched
	case auth && code == http.StatusForbidden:
		// tag owner disabled, nothing recorded
		result.Status = StatusKeyAccepted
	default:
		return result, errors.Errorf("endpoint=%s unexpected status=%d", network.Endpoint, code)
	}
	return result, nil
}

func parseMessage(contentType string, b []byte) (string, bool) {
	if !strings.HasPrefix(contentType, "application/json") {
		return "", false
	}
	var m apiMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return "", false
	}
	return m.Message, true
}

type NTPQueryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

type NTPResult struct {
	Server  string
	Stratum uint8
	Offset  time.Duration
	RTT     time.Duration
}

func (r NTPResult) String() string {
	return fmt.Sprintf("ntp=%s stratum=%d offset=%s rtt=%s",
		r.Server, r.Stratum, r.Offset.Round(time.Millisecond), r.RTT.Round(time.Millisecond))
}

// NTP queries server once, query nil means ntp.QueryWithOptions.
func NTP(ctx context.Context, query NTPQueryFunc, server string) (NTPResult, error) {
	if query == nil {
		query = ntp.QueryWithOptions
	}
	result := NTPResult{Server: server}
	opt := ntp.QueryOptions{Timeout: DefaultTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		opt.Timeout = time.Until(deadline)
		if opt.Timeout <= 0 {
			return result, errors.Annotatef(context.DeadlineExceeded, "ntp=%s", server)
		}
	}

	type answer struct {
		r   *ntp.Response
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		r, err := query(server, opt)
		ch <- answer{r, err}
	}()
	var a answer
	select {
	case a = <-ch:
	case <-ctx.Done():
		return result, errors.Annotatef(ctx.Err(), "ntp=%s", server)
	}
	if a.err != nil {
		return result, errors.Annotatef(a.err, "ntp=%s", server)
	}
	if err := a.r.Validate(); err != nil {
		return result, errors.Annotatef(err, "ntp=%s invalid response", server)
	}
	result.Stratum = a.r.Stratum
	result.Offset = a.r.ClockOffset
	result.RTT = a.r.RTT
	return result, nil
}
