package conn

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/connstorm/connstorm/internal/model"
)

// mutatingMethods are the HTTP methods that carry the bound row as a body.
var mutatingMethods = map[string]bool{
	http.MethodPost: true, http.MethodPut: true, http.MethodPatch: true,
}

// runHTTPCycle performs one request/response cycle. The cycle is the
// "connection": a 2xx/3xx response counts as open and is immediately
// logically closed; anything else is an error and schedules a retry.
func (c *Connection) runHTTPCycle() {
	c.mu.Lock()
	started := c.attemptStartedAt
	c.mu.Unlock()

	method := strings.ToUpper(c.cfg.Method)
	var body io.Reader
	if mutatingMethods[method] && len(c.cfg.Body) > 0 {
		body = bytes.NewReader(c.cfg.Body)
	}

	req, err := http.NewRequest(method, c.cfg.URL, body)
	if err != nil {
		c.finishCycle(0, msSince(started), err)
		return
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	latency := msSince(started)
	if err != nil {
		c.finishCycle(0, latency, err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	c.finishCycle(resp.StatusCode, latency, nil)
}

// finishCycle is the single completion path for a cycle, success or
// failure. The close event is recorded exactly once per cycle: a late
// completion after Close already accounted for it stays silent, and no
// retry is scheduled once shutdown has begun.
func (c *Connection) finishCycle(status int, latencyMs float64, err error) {
	success := err == nil && status >= 200 && status < 400

	c.mu.Lock()
	if c.cycleDone {
		c.mu.Unlock()
		return
	}
	c.cycleDone = true
	closing := c.closing
	c.lastStatus = status
	if !closing {
		if success {
			c.state = StateClosed
		} else {
			c.state = StateError
		}
	}
	c.mu.Unlock()

	if success {
		c.emit(model.EventOpen, latencyMs, nil)
		c.emit(model.EventClose, 0, nil)
		// One-shot attempt: success schedules no retry.
		return
	}

	if err == nil {
		err = fmt.Errorf("http status %d", status)
	}
	c.logger.Debug("http cycle failed", "error", err)
	c.emit(model.EventError, 0, err)
	c.emit(model.EventClose, 0, nil)
	if !closing {
		c.scheduleRetry()
	}
}
