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

import "testing"

func TestSymbolsOutline(t *testing.T) {
	e := sampleEntry(t)
	syms := Symbols(e.Doc)
	if len(syms) != 2 {
		t.Fatalf("symbols = %+v", syms)
	}

	pallavi := syms[0]
	if pallavi.Name != "pallavi" || pallavi.Kind != "section" {
		t.Fatalf("first symbol = %+v", pallavi)
	}
	// Header on wire line 8, last phrase line (the analysis) on 11, so the
	// exclusive end is 12.
	if pallavi.Range.Start.Line != 8 || pallavi.Range.End.Line != 12 {
		t.Fatalf("pallavi range = %+v", pallavi.Range)
	}
	if len(pallavi.Children) != 1 {
		t.Fatalf("pallavi children = %+v", pallavi.Children)
	}
	phrase := pallavi.Children[0]
	if phrase.Kind != "phrase" || phrase.Name != "G G R S …" {
		t.Fatalf("phrase symbol = %+v", phrase)
	}
	if phrase.Range.Start.Line != 9 || phrase.Range.End.Line != 12 {
		t.Fatalf("phrase range = %+v", phrase.Range)
	}

	anupallavi := syms[1]
	if anupallavi.Name != "anupallavi" {
		t.Fatalf("second symbol = %+v", anupallavi)
	}
	if anupallavi.Range.Start.Line != 13 || anupallavi.Range.End.Line != 17 {
		t.Fatalf("anupallavi range = %+v", anupallavi.Range)
	}
	if len(anupallavi.Children) != 1 || anupallavi.Children[0].Name != "G,G, R2 S' P …" {
		t.Fatalf("anupallavi children = %+v", anupallavi.Children)
	}
}

func TestSymbolsSectionWithoutPhrases(t *testing.T) {
	text := "---\ntitle: t\nraga: r\ntala: \"+234+0+0\"\n---\n\n[pallavi]\n"
	e := NewStore().Open("file:///empty.vna", text)
	if !e.Valid() {
		t.Fatalf("parse: %v", e.Err)
	}
	syms := Symbols(e.Doc)
	if len(syms) != 1 || len(syms[0].Children) != 0 {
		t.Fatalf("symbols = %+v", syms)
	}
	// An empty section spans just its header line.
	if syms[0].Range.Start.Line != 6 || syms[0].Range.End.Line != 7 {
		t.Fatalf("range = %+v", syms[0].Range)
	}
}
