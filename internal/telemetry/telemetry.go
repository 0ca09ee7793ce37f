/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry reports anonymous usage events and crash dumps for
// the notation tools. Everything is opt-in and fire-and-forget: events
// queue into a bounded channel, a single goroutine posts them, and a
// full queue or a failed request drops data rather than slowing a lint
// or index run. Payloads carry tool version, platform and a random
// per-process session id, never file contents or lyrics.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "vna/internal/log"
	"vna/internal/version"
)

// Config controls event and crash reporting. The zero value disables
// both; OptIn alone is not enough, an endpoint URL must be set too.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// FromEnv builds a Config from the VNA_TELEMETRY_* environment:
// VNA_TELEMETRY_OPT_IN ("1"/"true"/"yes"/"on"), VNA_TELEMETRY_URL,
// VNA_CRASH_UPLOAD_URL, VNA_TELEMETRY_TIMEOUT_MS and
// VNA_TELEMETRY_DEBUG.
func FromEnv() Config {
	cfg := Config{
		OptIn:        optedIn(os.Getenv("VNA_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("VNA_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("VNA_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("VNA_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("VNA_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if d, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = d
		}
	}
	return cfg
}

func optedIn(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// event is the JSON body posted per usage event. Command-specific
// details live under props so they cannot shadow the envelope fields.
type event struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Session string         `json:"session"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client queues events and ships them in the background.
type Client struct {
	cfg     Config
	log     *slog.Logger
	httpc   *http.Client
	session string
	queue   chan event
	done    chan struct{}
	once    sync.Once
}

// New starts a client and its sender goroutine. Callers should Close it
// when the process winds down, though a leaked sender only blocks on an
// empty channel.
func New(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		httpc:   &http.Client{Timeout: cfg.Timeout},
		session: uuid.NewString(),
		queue:   make(chan event, 64),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// Enabled reports whether usage events will actually be sent.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.OptIn && c.cfg.EventsURL != ""
}

// Event queues one usage event. Never blocks: a full queue drops the
// event, and a disabled client or empty name is a no-op.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := event{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Session: c.session,
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if len(props) > 0 {
		ev.Props = make(map[string]any, len(props))
		for k, v := range props {
			ev.Props[k] = v
		}
	}
	select {
	case c.queue <- ev:
	default:
	}
}

// Flush waits up to half a second for queued events to be picked up by
// the sender. Best effort; an in-flight request may still be cut off
// when the process exits.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.queue) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the sender goroutine. Queued events are abandoned.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) run() {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.queue:
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			c.deliver(c.cfg.EventsURL, "application/json", body, "event")
		}
	}
}

// UploadCrash posts a serialized crash report to the crash endpoint.
// Uses its own goroutine so a panicking process can still exit promptly.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	body := append([]byte(nil), report...)
	go c.deliver(c.cfg.CrashURL, "text/plain; charset=utf-8", body, "crash report")
}

func (c *Client) deliver(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.httpc.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry post failed", slog.String("what", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry posted", slog.String("what", what))
	}
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault builds the package-level client from the environment the
// first time any package-level call runs.
func InitDefault() {
	defaultOnce.Do(func() { NewDefault(FromEnv()) })
}

// NewDefault installs cfg as the package-level client.
func NewDefault(cfg Config) {
	defaultClient = New(cfg)
}

// Enabled reports whether the package-level client will send events.
func Enabled() bool {
	InitDefault()
	return defaultClient.Enabled()
}

// Event queues a usage event on the package-level client.
func Event(name string, props map[string]any) {
	InitDefault()
	defaultClient.Event(name, props)
}

// Flush drains the package-level client's queue.
func Flush(ctx context.Context) {
	InitDefault()
	defaultClient.Flush(ctx)
}

// UploadCrash sends a crash report through the package-level client.
func UploadCrash(report []byte) {
	InitDefault()
	defaultClient.UploadCrash(report)
}

// LintRun records the outcome of a lint pass: how many files were
// checked and how many carried errors. No paths or content.
func LintRun(files, errors int) {
	Event("lint", map[string]any{"files": files, "errors": errors})
}

// IndexRebuild records an archive index rebuild.
func IndexRebuild(indexed, failed int, elapsed time.Duration) {
	Event("index_rebuild", map[string]any{
		"indexed":    indexed,
		"failed":     failed,
		"elapsed_ms": elapsed.Milliseconds(),
	})
}
