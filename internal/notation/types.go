/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notation

// Document is the root of a parsed .vna file: frontmatter metadata, the
// ordered sections of the composition, and any comments that appear before
// the first section. Produced by a single Parse call and treated as
// immutable afterward; the validator reads it without mutating.
type Document struct {
	Metadata Metadata
	Sections []Section
	Comments []Comment
}

// Metadata holds the YAML frontmatter. Title, Raga and Tala are required
// and guaranteed non-empty after a successful parse. Numeric fields are
// pointers so that absent and zero can be told apart.
type Metadata struct {
	Title           string `yaml:"title"`
	Raga            string `yaml:"raga"`
	Tala            string `yaml:"tala"`
	CompositionType string `yaml:"type"`
	Tempo           *int   `yaml:"tempo"`
	Composer        string `yaml:"composer"`
	Language        string `yaml:"language"`
	Key             string `yaml:"key"`
	Gati            *int   `yaml:"gati"`
	DefaultOctave   string `yaml:"default_octave"`
	Arohanam        string `yaml:"arohanam"`
	Avarohanam      string `yaml:"avarohanam"`
}

// Section is a named structural division such as [pallavi] or [charanam].
// Gati and Tala, when set, override the document-level values for every
// phrase in the section.
type Section struct {
	Name       string
	Phrases    []Phrase
	Comments   []Comment
	Gati       *int
	Tala       string
	LineNumber int // 1-based line of the [name] header
}

// Phrase is one melodic/lyric line pair. Swaras and Sahitya always have
// equal length after a successful parse, and BeatPositions holds the
// running token count at each internal beat marker (the trailing || is not
// recorded). LineNumber is the 1-based line of the melodic line; the lyric
// line is LineNumber+1 and an analysis line, if present, LineNumber+2.
type Phrase struct {
	Swaras            []string
	Sahitya           []string
	PhraseAnalysis    string
	BeatPositions     []int
	Gati              *int
	Tala              string
	PrecedingComments []Comment
	LineNumber        int
}

// CommentType classifies where a comment was attached.
type CommentType int

const (
	// CommentLine is a document-level comment before the first section.
	CommentLine CommentType = iota
	// CommentSection is a comment attached to a section (trailing, or not
	// followed by a phrase).
	CommentSection
	// CommentPerformance is a comment immediately preceding a phrase,
	// conventionally a performance note for that phrase.
	CommentPerformance
)

// Comment is free text introduced by #. Purely advisory; never validated.
type Comment struct {
	Text       string
	LineNumber int
	Type       CommentType
}

// Severity ranks validation issues.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Position is a source location. Line is 1-based; Character is a 0-based
// rune offset within the line.
type Position struct {
	Line      int
	Character int
}

// Range spans from Start to End, inclusive of Start and exclusive of End.
type Range struct {
	Start Position
	End   Position
}

// ValidationIssue is one finding from Validate. Code is a stable machine
// identifier (for example "unusual_tempo") intended for editor tooling;
// Column and Range are optional refinements of Line.
type ValidationIssue struct {
	Severity Severity
	Message  string
	Line     int
	Column   *int
	Code     string
	Range    *Range
}

// DefaultGati is the subdivision assumed when no scope sets one.
const DefaultGati = 4

// GatiFor resolves the rhythmic subdivision in effect for a phrase by
// precedence: phrase override, then section override, then document
// metadata, then DefaultGati. Token-level :n overrides sit above this
// chain and are applied by callers via TokenGati. Either argument may be
// nil to resolve at a coarser scope.
func (d *Document) GatiFor(s *Section, p *Phrase) int {
	if p != nil && p.Gati != nil {
		return *p.Gati
	}
	if s != nil && s.Gati != nil {
		return *s.Gati
	}
	if d.Metadata.Gati != nil {
		return *d.Metadata.Gati
	}
	return DefaultGati
}

// TalaFor resolves the tala pattern in effect for a phrase by the same
// precedence chain as GatiFor. The document-level tala is required, so the
// result is never empty for a parsed document.
func (d *Document) TalaFor(s *Section, p *Phrase) string {
	if p != nil && p.Tala != "" {
		return p.Tala
	}
	if s != nil && s.Tala != "" {
		return s.Tala
	}
	return d.Metadata.Tala
}
