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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is the typed HTTP client for the shared-archive API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a backend client. baseURL may include a trailing
// slash; it will be normalized.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server %s %s: %s: %s", method, u.Path, resp.Status, apiErr.Error)
		}
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Composition is the wire form of an archived composition. Source holds
// the full .vna text on upsert and single-record fetches; list responses
// omit it.
type Composition struct {
	ID        int64     `json:"id"`
	StableID  string    `json:"stable_id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Raga      string    `json:"raga"`
	Tala      string    `json:"tala"`
	Composer  string    `json:"composer,omitempty"`
	Language  string    `json:"language,omitempty"`
	Type      string    `json:"type,omitempty"`
	Tempo     int       `json:"tempo,omitempty"`
	Sections  int       `json:"sections"`
	Phrases   int       `json:"phrases"`
	Source    string    `json:"source,omitempty"`
	Lyrics    string    `json:"lyrics,omitempty"`
	Version   int64     `json:"version,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// UpsertResult is the server response to a push.
type UpsertResult struct {
	ID       int64  `json:"id"`
	StableID string `json:"stable_id"`
	Version  int64  `json:"version"`
}

// SearchHit is one remote search result.
type SearchHit struct {
	StableID string `json:"stable_id"`
	Path     string `json:"path"`
	Title    string `json:"title"`
	Raga     string `json:"raga"`
	Tala     string `json:"tala"`
	Composer string `json:"composer,omitempty"`
	Language string `json:"language,omitempty"`
	Type     string `json:"type,omitempty"`
	Tempo    int    `json:"tempo,omitempty"`
	Sections int    `json:"sections"`
	Phrases  int    `json:"phrases"`
	Snippet  string `json:"snippet,omitempty"`
}

// FetchToken requests a bearer token for the given subject.
func (c *Client) FetchToken(ctx context.Context, subject string, ttl time.Duration) (string, time.Time, error) {
	req := map[string]any{"subject": subject}
	if ttl > 0 {
		req["ttl_seconds"] = int64(ttl / time.Second)
	}
	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &resp); err != nil {
		return "", time.Time{}, err
	}
	exp, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		return resp.Token, time.Time{}, nil
	}
	return resp.Token, exp, nil
}

// Push upserts a composition by path.
func (c *Client) Push(ctx context.Context, comp Composition) (UpsertResult, error) {
	var res UpsertResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/compositions", comp, &res); err != nil {
		return UpsertResult{}, err
	}
	return res, nil
}

// List returns all compositions, newest first, without source text.
func (c *Client) List(ctx context.Context) ([]Composition, error) {
	var list []Composition
	if err := c.doJSON(ctx, http.MethodGet, "/api/compositions", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get fetches one composition including its source text.
func (c *Client) Get(ctx context.Context, id int64) (Composition, error) {
	var comp Composition
	path := fmt.Sprintf("/api/compositions/%d", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &comp); err != nil {
		return Composition{}, err
	}
	return comp, nil
}

// SearchParams mirror the local archive filters for remote search.
type SearchParams struct {
	Text     string
	Raga     string
	Tala     string
	Composer string
	Language string
	Type     string
	Limit    int
	Offset   int
}

// Search runs a remote full-text search.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]SearchHit, error) {
	v := url.Values{}
	if p.Text != "" {
		v.Set("q", p.Text)
	}
	if p.Raga != "" {
		v.Set("raga", p.Raga)
	}
	if p.Tala != "" {
		v.Set("tala", p.Tala)
	}
	if p.Composer != "" {
		v.Set("composer", p.Composer)
	}
	if p.Language != "" {
		v.Set("language", p.Language)
	}
	if p.Type != "" {
		v.Set("type", p.Type)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	path := "/api/search"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}
	var hits []SearchHit
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}
