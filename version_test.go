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
	"math"
	"testing"
)

func TestParseVersion(t *testing.T) {
	for _, test := range []struct {
		in   string
		want Version
	}{
		{"0.0.0", Version{}},
		{"1.2.3", NewVersion(1, 2, 3)},
		{"10.20.30", NewVersion(10, 20, 30)},
		{"4294967295.4294967295.4294967295", MaxVersion},
	} {
		got, err := ParseVersion(test.in)
		if err != nil {
			t.Errorf("ParseVersion(%q): %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseVersion(%q) = %v, want %v", test.in, got, test.want)
		}
		if got.String() != test.in {
			t.Errorf("ParseVersion(%q).String() = %q", test.in, got)
		}
	}

	for _, in := range []string{
		"",
		"1",
		"1.2",
		"v1.2.3",
		"01.2.3",
		"1.2.3-alpha",
		"1.2.3+build",
		"4294967296.0.0",
		"a.b.c",
	} {
		if v, err := ParseVersion(in); !errors.Is(err, ErrMalformedVersion) {
			t.Errorf("ParseVersion(%q) = %v, %v; want ErrMalformedVersion", in, v, err)
		}
	}
}

func TestVersionCompare(t *testing.T) {
	ordered := []Version{
		NewVersion(0, 0, 0),
		NewVersion(0, 0, 1),
		NewVersion(0, 1, 0),
		NewVersion(0, 10, 0),
		NewVersion(1, 0, 0),
		NewVersion(1, 0, 2),
		NewVersion(2, 0, 0),
		MaxVersion,
	}
	for i, v := range ordered {
		for j, w := range ordered {
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			if got := v.Compare(w); got != want {
				t.Errorf("%v.Compare(%v) = %d, want %d", v, w, got, want)
			}
			if got := v.Less(w); got != (want < 0) {
				t.Errorf("%v.Less(%v) = %t", v, w, got)
			}
		}
	}
}

func TestBump(t *testing.T) {
	const top = math.MaxUint32
	for _, test := range []struct {
		v, want Version
		ok      bool
	}{
		{NewVersion(0, 0, 0), NewVersion(0, 0, 1), true},
		{NewVersion(1, 2, 3), NewVersion(1, 2, 4), true},
		{NewVersion(1, 2, top), NewVersion(1, 3, 0), true},
		{NewVersion(1, top, top), NewVersion(2, 0, 0), true},
		{NewVersion(top, top, top-1), NewVersion(top, top, top), true},
		{MaxVersion, Version{}, false},
	} {
		got, ok := test.v.Bump()
		if got != test.want || ok != test.ok {
			t.Errorf("%v.Bump() = %v, %t; want %v, %t", test.v, got, ok, test.want, test.ok)
		}
		if ok && !test.v.Less(got) {
			t.Errorf("%v.Bump() = %v, not greater", test.v, got)
		}
	}
}
