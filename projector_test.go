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
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var rangeComparer = cmp.Comparer(Range.Equal)

func mustRange(t *testing.T, s string) Range {
	t.Helper()
	r, err := ParseRange(s)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// scenarioIndex returns a universe exercising buckets, features and
// proxies:
//
//	b 1.0.0 -> d [1.5.0,3.5.0), spanning buckets 1 to 3
//	c 1.0.0 -> d [1.0.0,2.0.0) with features alpha and beta
//	f 1.0.0 +extra -> d *
//	        +self  -> f [1.0.0,2.0.0)
//	d 1.0.0, 1.5.0, 2.0.0, 3.0.0, 3.1.0, 4.0.0; alpha and beta at 1.5.0
func scenarioIndex(t *testing.T) *Index {
	x := NewIndex()
	x.Register("b", MustParseVersion("1.0.0"), Dep("d", mustRange(t, "[1.5.0,3.5.0)")))
	x.Register("c", MustParseVersion("1.0.0"), Dep("d", BucketRange(1), "alpha", "beta"))
	x.Register("f", MustParseVersion("1.0.0"))
	x.RegisterFeature("f", MustParseVersion("1.0.0"), "extra", Dep("d", Any()))
	x.RegisterFeature("f", MustParseVersion("1.0.0"), "self", Dep("f", BucketRange(1)))
	for _, v := range versions("1.0.0", "1.5.0", "2.0.0", "3.0.0", "3.1.0", "4.0.0") {
		x.Register("d", v)
	}
	x.RegisterFeature("d", MustParseVersion("1.5.0"), "alpha")
	x.RegisterFeature("d", MustParseVersion("1.5.0"), "beta")
	return x
}

func TestProjectorVersions(t *testing.T) {
	p := NewProjector(scenarioIndex(t))
	v1 := MustParseVersion("1.0.0")
	for _, test := range []struct {
		p    Package
		want []Version
	}{
		{BucketPackage("d", 1), versions("1.5.0", "1.0.0")},
		{BucketPackage("d", 3), versions("3.1.0", "3.0.0")},
		{BucketPackage("d", 5), nil},
		{BucketPackage("unknown", 1), nil},
		{FeaturePackage(Bucket{"d", 1}, "alpha"), versions("1.5.0", "1.0.0")},
		{ProxyPackage(Bucket{"b", 1}, v1, "", "d", ""), versions("3.1.0", "2.0.0", "1.5.0")},
		{ProxyPackage(Bucket{"f", 1}, v1, "extra", "d", ""), versions("4.0.0", "3.1.0", "2.0.0", "1.5.0")},
		// The edge is not declared by the source.
		{ProxyPackage(Bucket{"f", 1}, v1, "", "d", ""), nil},
		{ProxyPackage(Bucket{"b", 1}, MustParseVersion("9.0.0"), "", "d", ""), nil},
	} {
		got := slices.Collect(p.Versions(test.p))
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Versions(%v) (-want, +got):\n%s", test.p, diff)
		}
	}
}

func TestProjectorDependencies(t *testing.T) {
	p := NewProjector(scenarioIndex(t))
	v1 := MustParseVersion("1.0.0")
	v15 := MustParseVersion("1.5.0")
	bproxy := ProxyPackage(Bucket{"b", 1}, v1, "", "d", "")
	fproxy := ProxyPackage(Bucket{"f", 1}, v1, "extra", "d", "")
	for _, test := range []struct {
		name string
		p    Package
		v    Version
		want []Edge
	}{{
		name: "spanning range becomes a proxy",
		p:    BucketPackage("b", 1),
		v:    v1,
		want: []Edge{{bproxy, Any()}},
	}, {
		name: "proxy version in bucket 3",
		p:    bproxy,
		v:    MustParseVersion("3.1.0"),
		want: []Edge{{BucketPackage("d", 3), mustRange(t, "[3.0.0,3.5.0)")}},
	}, {
		name: "proxy version in bucket 2",
		p:    bproxy,
		v:    MustParseVersion("2.0.0"),
		want: []Edge{{BucketPackage("d", 2), BucketRange(2)}},
	}, {
		name: "proxy version in bucket 1",
		p:    bproxy,
		v:    v15,
		want: []Edge{{BucketPackage("d", 1), mustRange(t, "[1.5.0,2.0.0)")}},
	}, {
		name: "features replace the base edge",
		p:    BucketPackage("c", 1),
		v:    v1,
		want: []Edge{
			{FeaturePackage(Bucket{"d", 1}, "alpha"), BucketRange(1)},
			{FeaturePackage(Bucket{"d", 1}, "beta"), BucketRange(1)},
		},
	}, {
		name: "no mandatory dependencies",
		p:    BucketPackage("f", 1),
		v:    v1,
	}, {
		name: "feature edges then pinned base",
		p:    FeaturePackage(Bucket{"f", 1}, "extra"),
		v:    v1,
		want: []Edge{
			{fproxy, Any()},
			{BucketPackage("f", 1), Exact(v1)},
		},
	}, {
		name: "proxy declared by a feature",
		p:    fproxy,
		v:    MustParseVersion("4.0.0"),
		want: []Edge{{BucketPackage("d", 4), BucketRange(4)}},
	}, {
		name: "feature on its own package merges with the pin",
		p:    FeaturePackage(Bucket{"f", 1}, "self"),
		v:    v1,
		want: []Edge{{BucketPackage("f", 1), Exact(v1)}},
	}, {
		name: "feature without dependencies",
		p:    FeaturePackage(Bucket{"d", 1}, "alpha"),
		v:    v15,
		want: []Edge{{BucketPackage("d", 1), Exact(v15)}},
	}} {
		t.Run(test.name, func(t *testing.T) {
			got, ok := p.Dependencies(test.p, test.v)
			if !ok {
				t.Fatalf("Dependencies(%v, %v) unknown", test.p, test.v)
			}
			if diff := cmp.Diff(test.want, got, rangeComparer); diff != "" {
				t.Errorf("Dependencies(%v, %v) (-want, +got):\n%s", test.p, test.v, diff)
			}
		})
	}
}

func TestProjectorUnknown(t *testing.T) {
	p := NewProjector(scenarioIndex(t))
	v1 := MustParseVersion("1.0.0")
	for _, test := range []struct {
		name string
		p    Package
		v    Version
	}{
		{"unknown package", BucketPackage("zzz", 1), v1},
		{"unknown version", BucketPackage("d", 1), MustParseVersion("1.2.0")},
		{"version outside bucket", BucketPackage("d", 2), v1},
		{"unknown feature", FeaturePackage(Bucket{"d", 1}, "gamma"), MustParseVersion("1.5.0")},
		{"feature missing at version", FeaturePackage(Bucket{"d", 1}, "alpha"), v1},
		{"feature of unknown version", FeaturePackage(Bucket{"d", 1}, "alpha"), MustParseVersion("1.9.0")},
		{"proxy source does not declare target", ProxyPackage(Bucket{"b", 1}, v1, "", "c", ""), v1},
		{"proxy source feature missing", ProxyPackage(Bucket{"b", 1}, v1, "extra", "d", ""), v1},
		{"proxy source version unknown", ProxyPackage(Bucket{"b", 1}, MustParseVersion("7.0.0"), "", "d", ""), v1},
	} {
		if got, ok := p.Dependencies(test.p, test.v); ok {
			t.Errorf("%s: Dependencies(%v, %v) = %v, want unknown", test.name, test.p, test.v, got)
		}
	}
}

func TestChoosePackageVersion(t *testing.T) {
	p := NewProjector(scenarioIndex(t))
	d1 := BucketPackage("d", 1)
	d3 := BucketPackage("d", 3)
	for _, test := range []struct {
		name       string
		candidates []Edge
		want       Package
		wantV      string
		wantOK     bool
	}{{
		name:       "fewest versions",
		candidates: []Edge{{d3, Any()}, {d1, Exact(MustParseVersion("1.0.0"))}},
		want:       d1,
		wantV:      "1.0.0",
		wantOK:     true,
	}, {
		name:       "ties keep input order",
		candidates: []Edge{{d3, Any()}, {d1, Any()}},
		want:       d3,
		wantV:      "3.1.0",
		wantOK:     true,
	}, {
		name:       "newest in range",
		candidates: []Edge{{d1, mustRange(t, "[1.0.0,1.2.0)")}, {d3, Any()}},
		want:       d1,
		wantV:      "1.0.0",
		wantOK:     true,
	}, {
		name:       "no version in range",
		candidates: []Edge{{d1, Any()}, {d3, mustRange(t, "[3.5.0,4.0.0)")}},
		want:       d3,
		wantOK:     false,
	}} {
		t.Run(test.name, func(t *testing.T) {
			got, v, ok := p.ChoosePackageVersion(test.candidates)
			if got != test.want || ok != test.wantOK {
				t.Fatalf("ChoosePackageVersion = %v, %v, %t; want %v, %s, %t", got, v, ok, test.want, test.wantV, test.wantOK)
			}
			if ok && v.String() != test.wantV {
				t.Errorf("ChoosePackageVersion version = %v, want %s", v, test.wantV)
			}
		})
	}
	if got, _, ok := p.ChoosePackageVersion(nil); ok || got != (Package{}) || got.Kind != UnknownKind {
		t.Errorf("ChoosePackageVersion(nil) = %#v, %t; want the zero Package", got, ok)
	}
}

func TestProjectorVersionCache(t *testing.T) {
	x := NewIndex()
	x.Register("a", MustParseVersion("1.0.0"))
	cached := NewProjector(x, WithVersionCache(8))
	uncached := NewProjector(x, WithVersionCache(0))
	a1 := BucketPackage("a", 1)
	for _, p := range []*Projector{cached, uncached} {
		if got := slices.Collect(p.Versions(a1)); len(got) != 1 {
			t.Fatalf("Versions(a#1) = %v", got)
		}
	}

	// Later registrations are not seen through the cache.
	x.Register("a", MustParseVersion("1.1.0"))
	if got := slices.Collect(cached.Versions(a1)); len(got) != 1 {
		t.Errorf("cached Versions(a#1) = %v, want the memoized result", got)
	}
	if got := slices.Collect(uncached.Versions(a1)); len(got) != 2 {
		t.Errorf("uncached Versions(a#1) = %v, want both versions", got)
	}
}
