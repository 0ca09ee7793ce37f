/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor serves notation intelligence to editor clients over a
// small websocket JSON protocol: live diagnostics, hover, completion,
// document symbols and formatting for open .vna buffers.
package editor

import (
	"sort"
	"sync"

	"vna/internal/notation"
)

// Entry is one open document: the raw text plus the parse and validation
// results for it. Entries are immutable once stored; an edit replaces the
// whole entry rather than mutating it, so snapshots taken under read lock
// stay safe to use after the lock is released.
type Entry struct {
	Text   string
	Doc    *notation.Document
	Issues []notation.ValidationIssue
	Err    *notation.ParseError
}

// Valid reports whether the text parsed at all.
func (e *Entry) Valid() bool { return e.Err == nil }

// Store holds every open document keyed by URI. Reads (hover, completion,
// symbols) share a read lock; each re-parse on edit takes the write lock
// just long enough to swap one entry.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Entry
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*Entry)}
}

// Open parses and validates text and stores the result under uri,
// replacing any previous entry. A parse failure is not an error at this
// level: the entry records it and diagnostics surface it.
func (s *Store) Open(uri, text string) *Entry {
	e := &Entry{Text: text}
	doc, err := notation.Parse(text)
	if err != nil {
		if pe, ok := notation.AsParseError(err); ok {
			e.Err = pe
		} else {
			e.Err = &notation.ParseError{Kind: notation.ErrUnexpectedContent, Line: 1, Message: err.Error()}
		}
	} else {
		e.Doc = doc
		e.Issues = notation.Validate(doc)
	}
	s.mu.Lock()
	s.docs[uri] = e
	s.mu.Unlock()
	return e
}

// Update re-parses after an edit. A new edit simply supersedes the
// previous state of the same document.
func (s *Store) Update(uri, text string) *Entry { return s.Open(uri, text) }

// Close removes the document.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Snapshot returns the current entry for uri, if open.
func (s *Store) Snapshot(uri string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[uri]
	return e, ok
}

// URIs lists the open documents in sorted order.
func (s *Store) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}
