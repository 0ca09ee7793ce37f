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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := signToken("secret", "mira", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub, err := verifyToken("secret", tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "mira" {
		t.Fatalf("subject = %q, want mira", sub)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	tok, err := signToken("secret", "mira", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifyToken("other-secret", tok); err == nil {
		t.Fatalf("expected bad signature error")
	}
}

func TestTokenExpired(t *testing.T) {
	tok, err := signToken("secret", "mira", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifyToken("secret", tok); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestTokenMalformed(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b.c", "!!!.???"} {
		if _, err := verifyToken("secret", tok); err == nil {
			t.Errorf("verifyToken(%q) expected error", tok)
		}
	}
}

func TestWithAuthMiddleware(t *testing.T) {
	var gotSub string
	h := withAuth("secret", func(w http.ResponseWriter, r *http.Request, subject string) {
		gotSub = subject
		w.WriteHeader(http.StatusNoContent)
	})

	// No token.
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", rec.Code)
	}

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	h(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}

	// Valid token passes the subject through.
	tok, err := signToken("secret", "pushkala", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid token: status = %d, want 204; body %s", rec.Code, rec.Body.String())
	}
	if gotSub != "pushkala" {
		t.Fatalf("subject = %q, want pushkala", gotSub)
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0001_init.sql")
	if err != nil || v != 1 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("init.sql"); err == nil {
		t.Fatalf("expected error for unversioned name")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	found := false
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no .sql migrations embedded")
	}
}
