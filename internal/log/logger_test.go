/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestFromEnvAndGetenv(t *testing.T) {
	t.Setenv("VNA_LOG_LEVEL", "warn")
	t.Setenv("VNA_LOG_FORMAT", "json")
	t.Setenv("VNA_LOG_SOURCE", "true")
	// VNA_LOG_FILE intentionally unset

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}

	if err := os.Unsetenv("SOME_UNSET_VAR"); err != nil {
		t.Fatalf("Unsetenv error: %v", err)
	}
	if v := getenv("SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestConsoleHandlerBehavior(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{opts: consoleOpts{Level: slog.LevelWarn}, w: &buf}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")})
	h2 = h2.WithGroup("grp")

	r := slog.Record{Time: time.Now(), Level: slog.LevelError, Message: "boom"}
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "boom") || !strings.Contains(out, "k=v") {
		t.Fatalf("output missing expected content: %q", out)
	}
	if !strings.Contains(out, "grp.n=42") {
		t.Fatalf("grouped attr missing or malformed: %q", out)
	}
	if !strings.Contains(out, "ERR") {
		t.Fatalf("expected ERR level tag in output: %q", out)
	}
	if !strings.Contains(out, "pi=3.14") {
		t.Fatalf("expected float attr: %q", out)
	}
	if !strings.Contains(out, "ok=true") {
		t.Fatalf("expected bool attr: %q", out)
	}
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	m := &multi{hs: []slog.Handler{
		&consoleHandler{opts: consoleOpts{Level: slog.LevelInfo}, w: &a},
		&consoleHandler{opts: consoleOpts{Level: slog.LevelInfo}, w: &b},
	}}

	if !m.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("multi should be enabled when any child is")
	}

	r := slog.Record{Time: time.Now(), Level: slog.LevelInfo, Message: "fanout"}
	if err := m.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if !strings.Contains(a.String(), "fanout") || !strings.Contains(b.String(), "fanout") {
		t.Fatalf("record not fanned out: a=%q b=%q", a.String(), b.String())
	}

	m2 := m.WithAttrs([]slog.Attr{slog.String("x", "y")}).WithGroup("g")
	r2 := slog.Record{Time: time.Now(), Level: slog.LevelInfo, Message: "again"}
	if err := m2.Handle(context.Background(), r2); err != nil {
		t.Fatalf("handle error after WithAttrs/WithGroup: %v", err)
	}
	if !strings.Contains(a.String(), "x=y") {
		t.Fatalf("inherited attr missing: %q", a.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Leveler{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitJSONFormatDoesNotPanic(t *testing.T) {
	Init(Options{Level: "debug", Format: "json"})
	L().Debug("init smoke", slog.String("k", "v"))
	WithOperation(WithComponent("test"), "op").Info("with helpers")
}
