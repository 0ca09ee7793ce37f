/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestE2E_ClientServerRoundTrip(t *testing.T) {
	db := openPGForTest(t)
	defer func() { _ = db.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `TRUNCATE compositions RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	ts := httptest.NewServer(NewServeMux(db, "e2e-secret"))
	defer ts.Close()

	c := NewClient(ts.URL, "", 5*time.Second)

	// Unauthenticated requests are rejected before the token exchange.
	if _, err := c.List(ctx); err == nil {
		t.Fatalf("expected unauthenticated list to fail")
	}

	tok, exp, err := c.FetchToken(ctx, "e2e", time.Hour)
	if err != nil {
		t.Fatalf("fetch token: %v", err)
	}
	if tok == "" || !exp.After(time.Now()) {
		t.Fatalf("bad token response: tok=%q exp=%v", tok, exp)
	}
	c.Token = tok

	comp := Composition{
		Path:     "krithis/ninnukori.vna",
		Title:    "Ninnukori",
		Raga:     "mohanam",
		Tala:     "+234+0+0",
		Composer: "Ramnad Srinivasa Iyengar",
		Language: "telugu",
		Type:     "varnam",
		Tempo:    72,
		Sections: 1,
		Phrases:  1,
		Source:   sampleNinnukori,
		Lyrics:   "ni nnu ko ri yu nna nu ra",
	}
	first, err := c.Push(ctx, comp)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if first.ID == 0 || first.StableID == "" || first.Version != 1 {
		t.Fatalf("first push result: %+v", first)
	}

	// Pushing the same path again bumps the version and keeps identity.
	comp.Tempo = 80
	second, err := c.Push(ctx, comp)
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if second.ID != first.ID || second.StableID != first.StableID {
		t.Fatalf("identity changed on upsert: %+v vs %+v", first, second)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("version = %d, want %d", second.Version, first.Version+1)
	}

	list, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}
	if list[0].Path != comp.Path || list[0].Tempo != 80 {
		t.Fatalf("listed composition wrong: %+v", list[0])
	}
	if list[0].Source != "" {
		t.Fatalf("list should omit source text")
	}
	if list[0].UpdatedAt.IsZero() {
		t.Fatalf("list should carry updated_at")
	}

	got, err := c.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Source != sampleNinnukori {
		t.Fatalf("fetched source does not round-trip")
	}
	if got.Version != second.Version {
		t.Fatalf("fetched version = %d, want %d", got.Version, second.Version)
	}
	if _, err := c.Get(ctx, first.ID+9999); err == nil {
		t.Fatalf("expected missing id to fail")
	} else if !strings.Contains(err.Error(), "no such composition") {
		t.Fatalf("missing id error should carry server message, got: %v", err)
	}

	hits, err := c.Search(ctx, SearchParams{Text: "nnu"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != comp.Path {
		t.Fatalf("search hits wrong: %+v", hits)
	}
	if hits[0].StableID != first.StableID {
		t.Fatalf("search stable id = %q, want %q", hits[0].StableID, first.StableID)
	}
	if !strings.Contains(hits[0].Snippet, "[nnu]") {
		t.Fatalf("snippet should bracket the term: %q", hits[0].Snippet)
	}
	if none, err := c.Search(ctx, SearchParams{Text: "nnu", Language: "sanskrit"}); err != nil || len(none) != 0 {
		t.Fatalf("language filter should exclude hit: %v %+v", err, none)
	}
}
