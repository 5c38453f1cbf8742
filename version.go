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

/*
Package multiversion encodes package identities so that a solver choosing
exactly one version per name can resolve graphs in which a package is used
at several major versions at once, and in which packages expose optional
feature bundles.

An Index holds the registered versions and their dependencies. A Projector
wraps an Index and implements the Provider capability consumed by solvers:
it answers, for a synthetic Package identity (a Bucket, a Feature or a
Proxy), which versions exist and which edges a chosen version brings in.
*/
package multiversion

import (
	"errors"
	"fmt"
	"math"

	"github.com/Masterminds/semver/v3"
)

// ErrMalformedVersion is returned when a version string is not of the form
// MAJOR.MINOR.PATCH.
var ErrMalformedVersion = errors.New("malformed version")

// Version is a MAJOR.MINOR.PATCH triple. Versions are totally ordered by
// Compare; the zero value is 0.0.0, the lowest version.
type Version struct {
	Major, Minor, Patch uint32
}

// NewVersion is a convenience constructor.
func NewVersion(major, minor, patch uint32) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// MaxVersion is the greatest representable version.
var MaxVersion = Version{math.MaxUint32, math.MaxUint32, math.MaxUint32}

// ParseVersion parses a strict MAJOR.MINOR.PATCH version. Pre-release and
// build metadata are not part of the ordering used here and are rejected.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: %v", ErrMalformedVersion, s, err)
	}
	if sv.Prerelease() != "" || sv.Metadata() != "" {
		return Version{}, fmt.Errorf("%w %q: pre-release and build metadata are not supported", ErrMalformedVersion, s)
	}
	if sv.Major() > math.MaxUint32 || sv.Minor() > math.MaxUint32 || sv.Patch() > math.MaxUint32 {
		return Version{}, fmt.Errorf("%w %q: component out of range", ErrMalformedVersion, s)
	}
	return Version{uint32(sv.Major()), uint32(sv.Minor()), uint32(sv.Patch())}, nil
}

// MustParseVersion is like ParseVersion but panics on error. It is intended
// for tests and static tables.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare reports whether v is less than, equal to or greater than w,
// returning -1, 0 or 1 respectively.
func (v Version) Compare(w Version) int {
	if c := cmpUint32(v.Major, w.Major); c != 0 {
		return c
	}
	if c := cmpUint32(v.Minor, w.Minor); c != 0 {
		return c
	}
	return cmpUint32(v.Patch, w.Patch)
}

// Less reports whether v sorts before w.
func (v Version) Less(w Version) bool { return v.Compare(w) < 0 }

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Bump returns the smallest version strictly greater than v. The patch
// component is incremented, carrying into minor and major on overflow. It
// reports false when v is MaxVersion.
func (v Version) Bump() (Version, bool) {
	switch {
	case v.Patch < math.MaxUint32:
		return Version{v.Major, v.Minor, v.Patch + 1}, true
	case v.Minor < math.MaxUint32:
		return Version{v.Major, v.Minor + 1, 0}, true
	case v.Major < math.MaxUint32:
		return Version{v.Major + 1, 0, 0}, true
	}
	return Version{}, false
}

// bumpMajor returns (major+1).0.0, or false for the last major line.
func (v Version) bumpMajor() (Version, bool) {
	if v.Major == math.MaxUint32 {
		return Version{}, false
	}
	return Version{Major: v.Major + 1}, true
}
