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

package pgsource

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	pg "github.com/contriboss/pubgrub-go"
	"github.com/google/go-cmp/cmp"

	"deps.dev/util/multiversion"
	"deps.dev/util/multiversion/internal/resolvetest"
	"deps.dev/util/multiversion/solve"
)

func TestCondition(t *testing.T) {
	mv := multiversion.MustParseVersion
	for _, test := range []struct {
		r     string
		in    []string
		notIn []string
	}{
		{"*", []string{"0.0.0", "1.2.3", "4294967295.0.0"}, nil},
		{"[1.0.0,2.0.0)", []string{"1.0.0", "1.9.9"}, []string{"0.9.0", "2.0.0"}},
		{"[1.2.0,)", []string{"1.2.0", "9.0.0"}, []string{"1.1.9"}},
		{"1.2.3", []string{"1.2.3"}, []string{"1.2.2", "1.2.4"}},
		{"[2.0.0,1.0.0)", nil, []string{"0.0.0", "1.0.0", "1.5.0", "2.0.0"}},
	} {
		r, err := multiversion.ParseRange(test.r)
		if err != nil {
			t.Fatal(err)
		}
		c := Condition(r)
		for _, s := range test.in {
			if !c.Satisfies(Version{mv(s)}) {
				t.Errorf("Condition(%v) does not contain %s", r, s)
			}
		}
		for _, s := range test.notIn {
			if c.Satisfies(Version{mv(s)}) {
				t.Errorf("Condition(%v) contains %s", r, s)
			}
		}
	}
}

func TestVersionSort(t *testing.T) {
	v1 := Version{multiversion.MustParseVersion("1.0.0")}
	v2 := Version{multiversion.MustParseVersion("2.0.0")}
	v10 := Version{multiversion.MustParseVersion("10.0.0")}
	for _, test := range []struct {
		a, b pg.Version
		want int
	}{
		{v1, v2, -1},
		{v2, v10, -1},
		{v10, v10, 0},
		{v2, pg.SimpleVersion("1.5.0"), 1},
		{pg.SimpleVersion("1.5.0"), v2, -1},
		{v1, pg.SimpleVersion("1.0.0"), 0},
	} {
		if got := test.a.Sort(test.b); got != test.want {
			t.Errorf("%v.Sort(%v) = %d, want %d", test.a, test.b, got, test.want)
		}
		if got := test.b.Sort(test.a); got != -test.want {
			t.Errorf("%v.Sort(%v) = %d, want %d", test.b, test.a, got, -test.want)
		}
	}
}

func TestSource(t *testing.T) {
	x := multiversion.NewIndex()
	x.Register("a", multiversion.MustParseVersion("1.0.0"))
	x.Register("a", multiversion.MustParseVersion("1.1.0"))
	x.Register("a", multiversion.MustParseVersion("2.0.0"))
	src := NewSource(multiversion.NewProjector(x))

	if _, err := src.GetVersions(pg.MakeName("a#1")); err == nil {
		t.Errorf("GetVersions of an unnamed package succeeded")
	}
	a1 := multiversion.BucketPackage("a", 1)
	n := src.Name(a1)
	if got, ok := src.Package(n); !ok || got != a1 {
		t.Errorf("Package(%v) = %v, %v; want %v", n, got, ok, a1)
	}
	vs, err := src.GetVersions(n)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, v := range vs {
		got = append(got, v.String())
	}
	if want := "1.0.0 1.1.0"; strings.Join(got, " ") != want {
		t.Errorf("GetVersions(%v) = %v, want %s", n, got, want)
	}
	if _, err := src.GetDependencies(n, Version{multiversion.MustParseVersion("2.0.0")}); err == nil {
		t.Errorf("GetDependencies of a version outside the bucket succeeded")
	}
}

func TestResolve(t *testing.T) {
	a, err := resolvetest.ParseFiles("../testdata/resolve.data")
	if err != nil {
		t.Fatal(err)
	}
	for _, tst := range a.Test {
		t.Run(tst.Name, func(t *testing.T) {
			p := multiversion.NewProjector(tst.Universe)
			sol, err := Resolve(p, tst.Root, tst.Version)
			if tst.WantError {
				if err == nil {
					t.Fatalf("Resolve(%v, %v) = %v; want an error", tst.Root, tst.Version, sol)
				}
				return
			}
			if err != nil {
				t.Fatalf("cannot resolve %v@%v: %v", tst.Root, tst.Version, err)
			}
			checkSolution(t, p, tst.Root, tst.Version, sol)
			if !sameSelection[tst.Name] {
				return
			}
			got := make(map[string]multiversion.Version)
			for pkg, v := range sol {
				got[pkg.String()] = v
			}
			if diff := cmp.Diff(tst.Want, got); diff != "" {
				t.Errorf("Unexpected resolution (- want, + got):\n%s", diff)
			}
		})
	}
}

// sameSelection lists the tests whose solution is the one expected from the
// backtracking engine as well.
var sameSelection = map[string]bool{
	"shared_features_any_bucket":    true,
	"features_split_across_buckets": true,
	"features_in_distinct_buckets":  true,
}

func TestResolveLogger(t *testing.T) {
	x := multiversion.NewIndex()
	v := multiversion.MustParseVersion("1.0.0")
	x.Register("a", v, multiversion.Dep("b", multiversion.BucketRange(1)))
	x.Register("b", v)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	root := multiversion.BucketPackage("a", 1)
	sol, err := Resolve(multiversion.NewProjector(x), root, v, WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	checkSolution(t, multiversion.NewProjector(x), root, v, sol)
	if !strings.Contains(buf.String(), "msg=resolved") {
		t.Errorf("log has no outcome:\n%s", buf.String())
	}
	if _, err := Resolve(multiversion.NewProjector(x), root, v, WithMaxSteps(-1)); err == nil {
		t.Errorf("Resolve with negative max steps succeeded")
	}
}

// checkSolution checks that the root is selected at its version and that
// the dependencies of every selected identity are known and satisfied by
// the solution.
func checkSolution(t *testing.T, p multiversion.Provider, root multiversion.Package, v multiversion.Version, sol solve.Solution) {
	t.Helper()
	if got, ok := sol[root]; !ok || got != v {
		t.Errorf("root %v selected at %v, want %v", root, got, v)
	}
	for pkg, pv := range sol {
		deps, ok := p.Dependencies(pkg, pv)
		if !ok {
			t.Errorf("%v@%v: dependencies are unknown", pkg, pv)
			continue
		}
		for _, e := range deps {
			sv, ok := sol[e.Package]
			if !ok {
				t.Errorf("%v@%v requires %v, which is not selected", pkg, pv, e)
				continue
			}
			if !e.Range.Contains(sv) {
				t.Errorf("%v@%v requires %v, got %v", pkg, pv, e, sv)
			}
		}
	}
}
