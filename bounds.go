// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package multiversion

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRange is returned by ParseRange for strings that are not in
// interval notation.
var ErrMalformedRange = errors.New("malformed range")

// BoundKind indicates how a Bound restricts one end of a range.
type BoundKind uint8

const (
	// Unbounded leaves the end of the range open.
	Unbounded BoundKind = iota
	// Included keeps the bound's version in the range.
	Included
	// Excluded keeps the bound's version out of the range.
	Excluded
)

// Bound is one end of a user supplied range.
type Bound struct {
	Kind    BoundKind
	Version Version
}

// Unbound returns an Unbounded Bound.
func Unbound() Bound { return Bound{} }

// Incl returns an Included Bound at v.
func Incl(v Version) Bound { return Bound{Kind: Included, Version: v} }

// Excl returns an Excluded Bound at v.
func Excl(v Version) Bound { return Bound{Kind: Excluded, Version: v} }

func (b Bound) String() string {
	switch b.Kind {
	case Unbounded:
		return "unbounded"
	case Included:
		return "included " + b.Version.String()
	case Excluded:
		return "excluded " + b.Version.String()
	}
	return fmt.Sprintf("BoundKind(%d)", b.Kind)
}

// RangeFromBounds converts a pair of bounds into the canonical half-open
// Range [low, high). Inclusive ends and exclusive starts are rewritten with
// Version.Bump. An inclusive end at MaxVersion becomes unbounded and an
// exclusive start at MaxVersion yields the empty range.
func RangeFromBounds(start, end Bound) Range {
	switch {
	case start.Kind == Unbounded && end.Kind == Unbounded:
		return Range{}
	case start.Kind == Unbounded && end.Kind == Excluded:
		return newRange(Version{}, end.Version, true)
	case start.Kind == Unbounded && end.Kind == Included:
		return upTo(Version{}, end.Version)
	case start.Kind == Included && end.Kind == Unbounded:
		return newRange(start.Version, Version{}, false)
	case start.Kind == Included && end.Kind == Included:
		return upTo(start.Version, end.Version)
	case start.Kind == Included && end.Kind == Excluded:
		return newRange(start.Version, end.Version, true)
	case start.Kind == Excluded && end.Kind == Unbounded:
		low, ok := start.Version.Bump()
		if !ok {
			return Range{empty: true}
		}
		return newRange(low, Version{}, false)
	case start.Kind == Excluded && end.Kind == Included:
		low, ok := start.Version.Bump()
		if !ok {
			return Range{empty: true}
		}
		return upTo(low, end.Version)
	case start.Kind == Excluded && end.Kind == Excluded:
		low, ok := start.Version.Bump()
		if !ok {
			return Range{empty: true}
		}
		return newRange(low, end.Version, true)
	}
	panic(fmt.Sprintf("invalid bounds: %v, %v", start, end))
}

// upTo returns [low, last] in half-open form.
func upTo(low, last Version) Range {
	high, ok := last.Bump()
	if !ok {
		return newRange(low, Version{}, false)
	}
	return newRange(low, high, true)
}

// Exact returns the range holding only v.
func Exact(v Version) Range { return RangeFromBounds(Incl(v), Incl(v)) }

// Any returns the range holding every version.
func Any() Range { return RangeFromBounds(Unbound(), Unbound()) }

// ParseRange parses interval notation: "[1.0.0,2.0.0)", "(1.0.0,2.0.0]",
// "[1.0.0,)", "(,2.0.0]". A square bracket includes its version, a
// parenthesis excludes it, and an empty side is unbounded. "*" is the full
// range and a bare version is the range holding exactly that version.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "*" {
		return Any(), nil
	}
	if s == "" {
		return Range{}, fmt.Errorf("%w: empty string", ErrMalformedRange)
	}
	open, close := s[0], s[len(s)-1]
	if open != '[' && open != '(' {
		v, err := ParseVersion(s)
		if err != nil {
			return Range{}, fmt.Errorf("%w %q: %v", ErrMalformedRange, s, err)
		}
		return Exact(v), nil
	}
	if len(s) < 2 || (close != ']' && close != ')') {
		return Range{}, fmt.Errorf("%w %q: missing closing bracket", ErrMalformedRange, s)
	}
	lo, hi, ok := strings.Cut(s[1:len(s)-1], ",")
	if !ok || strings.Contains(hi, ",") {
		return Range{}, fmt.Errorf("%w %q: want exactly two comma separated ends", ErrMalformedRange, s)
	}
	start, err := parseBound(strings.TrimSpace(lo), open == '[')
	if err != nil {
		return Range{}, fmt.Errorf("%w %q: %v", ErrMalformedRange, s, err)
	}
	end, err := parseBound(strings.TrimSpace(hi), close == ']')
	if err != nil {
		return Range{}, fmt.Errorf("%w %q: %v", ErrMalformedRange, s, err)
	}
	return RangeFromBounds(start, end), nil
}

func parseBound(s string, inclusive bool) (Bound, error) {
	if s == "" {
		return Unbound(), nil
	}
	v, err := ParseVersion(s)
	if err != nil {
		return Bound{}, err
	}
	if inclusive {
		return Incl(v), nil
	}
	return Excl(v), nil
}
