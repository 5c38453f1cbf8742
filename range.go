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

// Range is a set of versions in half-open form [low, high). The high end
// may be unbounded. Ranges are built with RangeFromBounds (or helpers
// built on it) so that equal sets have equal representations and can be
// compared with ==. The zero value holds every version.
type Range struct {
	low     Version
	high    Version
	bounded bool
	empty   bool
}

// newRange normalises [low, high) so that every empty range has the same
// representation.
func newRange(low, high Version, bounded bool) Range {
	if bounded && !low.Less(high) {
		return Range{empty: true}
	}
	if !bounded {
		high = Version{}
	}
	return Range{low: low, high: high, bounded: bounded}
}

// IsEmpty reports whether r holds no version.
func (r Range) IsEmpty() bool { return r.empty }

// IsAny reports whether r holds every version.
func (r Range) IsAny() bool { return r == Range{} }

// Equal reports whether r and o hold the same versions.
func (r Range) Equal(o Range) bool { return r == o }

// Contains reports whether v is in r.
func (r Range) Contains(v Version) bool {
	if r.empty || v.Less(r.low) {
		return false
	}
	return !r.bounded || v.Less(r.high)
}

// Intersect returns the versions held by both r and o.
func (r Range) Intersect(o Range) Range {
	if r.empty || o.empty {
		return Range{empty: true}
	}
	low := r.low
	if low.Less(o.low) {
		low = o.low
	}
	switch {
	case !r.bounded && !o.bounded:
		return newRange(low, Version{}, false)
	case !r.bounded:
		return newRange(low, o.high, true)
	case !o.bounded:
		return newRange(low, r.high, true)
	}
	high := r.high
	if o.high.Less(high) {
		high = o.high
	}
	return newRange(low, high, true)
}

// Lowest returns the smallest version in r, or false when r is empty.
func (r Range) Lowest() (Version, bool) {
	if r.empty {
		return Version{}, false
	}
	return r.low, true
}

// Upper returns the exclusive upper end of r. It reports false when r is
// unbounded above or empty.
func (r Range) Upper() (Version, bool) {
	if r.empty || !r.bounded {
		return Version{}, false
	}
	return r.high, true
}

// String renders r in the notation accepted by ParseRange.
func (r Range) String() string {
	switch {
	case r.empty:
		return "[0.0.0,0.0.0)"
	case r.IsAny():
		return "*"
	case !r.bounded:
		return "[" + r.low.String() + ",)"
	}
	if next, ok := r.low.Bump(); ok && next == r.high {
		return r.low.String()
	}
	return "[" + r.low.String() + "," + r.high.String() + ")"
}
