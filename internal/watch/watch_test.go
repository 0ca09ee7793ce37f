/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFileChangeFires(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "varnam.vna")
	if err := os.WriteFile(file, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := make(chan []string, 4)
	w, err := New([]string{file}, 50*time.Millisecond, func(changed []string) {
		got <- changed
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(file, []byte("v2"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case changed := <-got:
		if len(changed) != 1 || filepath.Base(changed[0]) != "varnam.vna" {
			t.Fatalf("unexpected change set: %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}
}

func TestWatchDirPicksUpNewNotationFiles(t *testing.T) {
	dir := t.TempDir()

	got := make(chan []string, 4)
	w, err := New([]string{dir}, 50*time.Millisecond, func(changed []string) {
		got <- changed
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	// Non-notation files in a watched dir are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "kriti.vna"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case changed := <-got:
		for _, p := range changed {
			if filepath.Ext(p) != ".vna" {
				t.Fatalf("non-notation path reported: %v", changed)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}
}

func TestWatchRequiresPaths(t *testing.T) {
	if _, err := New(nil, 0, func([]string) {}); err == nil {
		t.Fatal("expected error for empty path set")
	}
}

func TestWatchMissingPath(t *testing.T) {
	if _, err := New([]string{filepath.Join(t.TempDir(), "absent.vna")}, 0, func([]string) {}); err == nil {
		t.Fatal("expected error for missing path")
	}
}
