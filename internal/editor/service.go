/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	applog "vna/internal/log"
	"vna/internal/notation"
)

// Request is one client message. Methods: open, change, close,
// diagnostics, hover, complete, symbols, format.
type Request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers exactly one Request, carrying either a result or an
// error string.
type Response struct {
	ID     int64  `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Notification is a server-initiated message; diagnostics are pushed this
// way after every open and change.
type Notification struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// Position and Range use 0-based line and character offsets on the wire,
// the usual editor convention. Internal notation positions are 1-based
// lines and are converted at this boundary.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Diagnostic is the wire form of a validation issue or parse failure.
type Diagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Range    Range  `json:"range"`
}

type openParams struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

type uriParams struct {
	URI string `json:"uri"`
}

type positionParams struct {
	URI       string `json:"uri"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

// openResult summarizes the state after an open or change; the full issue
// list arrives as a pushed diagnostics notification.
type openResult struct {
	URI      string `json:"uri"`
	Valid    bool   `json:"valid"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
	Infos    int    `json:"infos"`
}

type diagnosticsParams struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type hoverResult struct {
	Contents string `json:"contents"`
	Range    *Range `json:"range,omitempty"`
}

type formatResult struct {
	Text string `json:"text"`
}

// Service hosts the websocket endpoint. All documents share one Store, so
// several editor connections can look at the same buffers.
type Service struct {
	store    *Store
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewService() *Service {
	return &Service{
		store: NewStore(),
		// Editor clients connect from file:// or app-scheme origins.
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      applog.WithComponent("editor"),
	}
}

// Store exposes the shared document store, mainly for tests and for the
// watch integration.
func (s *Service) Store() *Store { return s.store }

// Handler returns the HTTP handler: the socket on /ws plus a /healthz
// endpoint.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve blocks on the listener.
func (s *Service) Serve(addr string) error {
	s.log.Info("editor service listening", slog.String("addr", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Service) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer func() { _ = conn.Close() }()
	s.log.Debug("editor client connected", slog.String("remote", r.RemoteAddr))

	// One goroutine per connection does all reads and writes, so no write
	// lock is needed on the socket.
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("editor client dropped", slog.Any("err", err))
			}
			return
		}
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			if werr := writeMessage(conn, Response{Error: "invalid request: " + err.Error()}); werr != nil {
				return
			}
			continue
		}
		resp, push := s.dispatch(req)
		if err := writeMessage(conn, resp); err != nil {
			return
		}
		if push != nil {
			if err := writeMessage(conn, *push); err != nil {
				return
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// dispatch routes one request and, for open/change, returns the
// diagnostics notification to push after the response.
func (s *Service) dispatch(req Request) (Response, *Notification) {
	fail := func(format string, args ...any) (Response, *Notification) {
		return Response{ID: req.ID, Error: fmt.Sprintf(format, args...)}, nil
	}

	switch req.Method {
	case "open", "change":
		var p openParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.URI == "" {
			return fail("open/change needs uri and text")
		}
		entry := s.store.Update(p.URI, p.Text)
		diags := DiagnosticsFor(entry)
		res := openResult{URI: p.URI, Valid: entry.Valid()}
		for _, d := range diags {
			switch d.Severity {
			case "error":
				res.Errors++
			case "warning":
				res.Warnings++
			case "info":
				res.Infos++
			}
		}
		note := &Notification{Method: "diagnostics", Params: diagnosticsParams{URI: p.URI, Diagnostics: diags}}
		return Response{ID: req.ID, Result: res}, note

	case "close":
		var p uriParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.URI == "" {
			return fail("close needs a uri")
		}
		s.store.Close(p.URI)
		return Response{ID: req.ID, Result: true}, nil

	case "diagnostics":
		var p uriParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.URI == "" {
			return fail("diagnostics needs a uri")
		}
		entry, ok := s.store.Snapshot(p.URI)
		if !ok {
			return fail("document not open: %s", p.URI)
		}
		return Response{ID: req.ID, Result: DiagnosticsFor(entry)}, nil

	case "hover":
		var p positionParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.URI == "" {
			return fail("hover needs uri, line, character")
		}
		entry, ok := s.store.Snapshot(p.URI)
		if !ok {
			return fail("document not open: %s", p.URI)
		}
		contents, rng, ok := Hover(entry, p.Line, p.Character)
		if !ok {
			return Response{ID: req.ID}, nil
		}
		return Response{ID: req.ID, Result: hoverResult{Contents: contents, Range: rng}}, nil

	case "complete":
		var p positionParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.URI == "" {
			return fail("complete needs uri, line, character")
		}
		entry, ok := s.store.Snapshot(p.URI)
		if !ok {
			return fail("document not open: %s", p.URI)
		}
		return Response{ID: req.ID, Result: Completions(entry, p.Line, p.Character)}, nil

	case "symbols":
		var p uriParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.URI == "" {
			return fail("symbols needs a uri")
		}
		entry, ok := s.store.Snapshot(p.URI)
		if !ok {
			return fail("document not open: %s", p.URI)
		}
		if entry.Doc == nil {
			return Response{ID: req.ID, Result: []Symbol{}}, nil
		}
		return Response{ID: req.ID, Result: Symbols(entry.Doc)}, nil

	case "format":
		var p uriParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.URI == "" {
			return fail("format needs a uri")
		}
		entry, ok := s.store.Snapshot(p.URI)
		if !ok {
			return fail("document not open: %s", p.URI)
		}
		if entry.Doc == nil {
			return fail("cannot format: %s", entry.Err.Error())
		}
		return Response{ID: req.ID, Result: formatResult{Text: notation.Format(entry.Doc)}}, nil

	default:
		return fail("unknown method: %s", req.Method)
	}
}

// DiagnosticsFor converts an entry's findings to wire form. A parse
// failure yields exactly one error diagnostic on its source line; a parsed
// document yields one diagnostic per validation issue.
func DiagnosticsFor(e *Entry) []Diagnostic {
	if e.Err != nil {
		return []Diagnostic{{
			Severity: "error",
			Message:  e.Err.Message,
			Code:     e.Err.Kind.String(),
			Range:    lineRange(e.Err.Line),
		}}
	}
	out := make([]Diagnostic, 0, len(e.Issues))
	for _, is := range e.Issues {
		d := Diagnostic{
			Severity: is.Severity.String(),
			Message:  is.Message,
			Code:     is.Code,
			Range:    lineRange(is.Line),
		}
		switch {
		case is.Range != nil:
			d.Range = Range{
				Start: Position{Line: zeroBased(is.Range.Start.Line), Character: is.Range.Start.Character},
				End:   Position{Line: zeroBased(is.Range.End.Line), Character: is.Range.End.Character},
			}
		case is.Column != nil:
			line := zeroBased(is.Line)
			d.Range = Range{
				Start: Position{Line: line, Character: *is.Column},
				End:   Position{Line: line, Character: *is.Column + 1},
			}
		}
		out = append(out, d)
	}
	return out
}

// lineRange is a zero-width range at the start of a 1-based source line.
func lineRange(line int) Range {
	l := zeroBased(line)
	return Range{Start: Position{Line: l}, End: Position{Line: l}}
}

func zeroBased(line int) int {
	if line <= 1 {
		return 0
	}
	return line - 1
}
