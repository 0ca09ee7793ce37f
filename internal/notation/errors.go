/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notation

import (
	"errors"
	"fmt"
)

// ParseErrorKind is the closed set of structural failures Parse can report.
// Parsing is fail-fast: the first problem aborts the whole parse.
type ParseErrorKind int

const (
	ErrMissingFrontmatter ParseErrorKind = iota
	ErrEmptyFrontmatter
	ErrMalformedMetadata
	ErrMissingRequiredField
	ErrUnexpectedContent
	ErrMissingBeatMarkers
	ErrIncompletePhrase
	ErrInvalidGati
	ErrBeatMisalignment
)

// String returns the stable machine identifier for the kind, used as the
// diagnostic code by editor tooling.
func (k ParseErrorKind) String() string {
	switch k {
	case ErrMissingFrontmatter:
		return "missing_frontmatter"
	case ErrEmptyFrontmatter:
		return "empty_frontmatter"
	case ErrMalformedMetadata:
		return "malformed_metadata"
	case ErrMissingRequiredField:
		return "missing_required_field"
	case ErrUnexpectedContent:
		return "unexpected_content"
	case ErrMissingBeatMarkers:
		return "missing_beat_markers"
	case ErrIncompletePhrase:
		return "incomplete_phrase"
	case ErrInvalidGati:
		return "invalid_gati"
	case ErrBeatMisalignment:
		return "beat_misalignment"
	default:
		return "parse_error"
	}
}

// ParseError describes why a parse failed. Line is 1-based and points at
// the offending source line.
type ParseError struct {
	Kind    ParseErrorKind
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func parseErrorf(kind ParseErrorKind, line int, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)}
}

// AsParseError returns the *ParseError inside err, if any.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
