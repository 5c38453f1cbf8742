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
	"fmt"
	"iter"
	"slices"

	"github.com/golang/groupcache/lru"
)

// Edge pairs a package identity with a range of its versions. It is both a
// dependency returned by Provider.Dependencies and a candidate passed to
// Provider.ChoosePackageVersion.
type Edge struct {
	Package Package
	Range   Range
}

func (e Edge) String() string {
	return e.Package.String() + " " + e.Range.String()
}

// Provider describes what a solver that selects a single version per
// package identity needs to know about the packages it is resolving.
type Provider interface {
	// Versions yields the versions of p from newest to oldest.
	Versions(p Package) iter.Seq[Version]
	// Dependencies returns the edges brought in by version v of p. It
	// reports false when p or v is unknown, in which case the solver must
	// treat v as unusable.
	Dependencies(p Package, v Version) ([]Edge, bool)
	// ChoosePackageVersion picks which of the candidates to decide next and
	// the version to try for it. It reports false when the chosen package
	// has no version in its range.
	ChoosePackageVersion(candidates []Edge) (Package, Version, bool)
}

var _ Provider = (*Projector)(nil)

// Projector implements Provider on top of an Index by projecting each
// registered package onto Bucket, Feature and Proxy identities.
//
// A Projector belongs to a single resolution and is not safe for concurrent
// use. The Index it reads from may be shared.
type Projector struct {
	index *Index
	cache *lru.Cache
}

// Option configures a Projector.
type Option func(*Projector)

// WithVersionCache memoizes the versions of up to n package identities.
// A value of zero or less disables the cache.
func WithVersionCache(n int) Option {
	return func(p *Projector) {
		if n <= 0 {
			p.cache = nil
			return
		}
		p.cache = lru.New(n)
	}
}

// NewProjector creates a Projector reading from x.
func NewProjector(x *Index, opts ...Option) *Projector {
	p := &Projector{index: x}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Versions implements Provider. Buckets and features yield the versions in
// their bucket. A proxy yields, for each bucket of its target, the newest
// version that the original dependency range accepts.
func (pr *Projector) Versions(p Package) iter.Seq[Version] {
	if pr.cache == nil {
		return pr.versions(p)
	}
	if vs, ok := pr.cache.Get(p); ok {
		return slices.Values(vs.([]Version))
	}
	vs := slices.Collect(pr.versions(p))
	pr.cache.Add(p, vs)
	return slices.Values(vs)
}

func (pr *Projector) versions(p Package) iter.Seq[Version] {
	switch p.Kind {
	case BucketKind, FeatureKind:
		return pr.index.VersionsInBucket(p.Bucket.Name, p.Bucket.Bucket)
	case ProxyKind:
		dep, ok := pr.proxied(p)
		if !ok {
			return func(func(Version) bool) {}
		}
		return Collapse(filter(pr.index.AvailableVersions(p.Target), dep.Range.Contains))
	}
	panic(fmt.Sprintf("unknown package kind %v", p.Kind))
}

// proxied returns the dependency of the proxy's source on its target, as
// registered.
func (pr *Projector) proxied(p Package) (Dependency, bool) {
	rec, ok := pr.index.Lookup(p.Bucket.Name, p.SourceVersion)
	if !ok {
		return Dependency{}, false
	}
	if p.SourceFeature != "" {
		return rec.OptionalDep(p.SourceFeature, p.Target)
	}
	return rec.MandatoryDep(p.Target)
}

// Dependencies implements Provider.
//
// A bucket depends on the mandatory dependencies of the version. A feature
// depends on the optional dependencies of its bundle and on its base bucket
// at exactly the same version. A proxy depends on the single bucket, or the
// feature of that bucket, holding the chosen version, restricted to the
// original range.
//
// A dependency whose range fits in one bucket becomes an edge to that
// bucket. Otherwise it becomes an edge to a proxy, which defers the choice
// of bucket. A dependency requesting features becomes one edge per feature
// in place of the edge to its base; empty feature names are ignored.
func (pr *Projector) Dependencies(p Package, v Version) ([]Edge, bool) {
	switch p.Kind {
	case BucketKind:
		rec, ok := pr.lookup(p.Bucket, v)
		if !ok {
			return nil, false
		}
		var es edges
		es.project(p.Bucket, v, "", rec.mandatory.deps)
		return es.list, true
	case FeatureKind:
		rec, ok := pr.lookup(p.Bucket, v)
		if !ok {
			return nil, false
		}
		bundle, ok := rec.optional[p.Feature]
		if !ok {
			return nil, false
		}
		var es edges
		es.project(p.Bucket, v, p.Feature, bundle.deps)
		es.add(BucketPackage(p.Bucket.Name, p.Bucket.Bucket), Exact(v))
		return es.list, true
	case ProxyKind:
		dep, ok := pr.proxied(p)
		if !ok {
			return nil, false
		}
		b := Bucket{Name: p.Target, Bucket: BucketOf(v)}
		target := BucketPackage(b.Name, b.Bucket)
		if p.Feature != "" {
			target = FeaturePackage(b, p.Feature)
		}
		return []Edge{{Package: target, Range: BucketRange(b.Bucket).Intersect(dep.Range)}}, true
	}
	panic(fmt.Sprintf("unknown package kind %v", p.Kind))
}

// lookup returns the record of version v of b's package, provided v is in
// bucket b.
func (pr *Projector) lookup(b Bucket, v Version) (*Record, bool) {
	if BucketOf(v) != b.Bucket {
		return nil, false
	}
	return pr.index.Lookup(b.Name, v)
}

// ChoosePackageVersion implements Provider. It picks the candidate with the
// fewest versions in its range, the earliest one on ties, and proposes its
// newest version in range. Without candidates it returns the zero Package.
func (pr *Projector) ChoosePackageVersion(candidates []Edge) (Package, Version, bool) {
	if len(candidates) == 0 {
		return Package{}, Version{}, false
	}
	best, bestCount := 0, -1
	for i, c := range candidates {
		n := 0
		for range filter(pr.Versions(c.Package), c.Range.Contains) {
			n++
		}
		if bestCount < 0 || n < bestCount {
			best, bestCount = i, n
		}
	}
	c := candidates[best]
	for v := range filter(pr.Versions(c.Package), c.Range.Contains) {
		return c.Package, v, true
	}
	return c.Package, Version{}, false
}

// edges accumulates the edges of one answer in order, merging edges to the
// same package by intersecting their ranges.
type edges struct {
	list []Edge
	pos  map[Package]int
}

func (es *edges) add(p Package, r Range) {
	if i, ok := es.pos[p]; ok {
		es.list[i].Range = es.list[i].Range.Intersect(r)
		return
	}
	if es.pos == nil {
		es.pos = make(map[Package]int)
	}
	es.pos[p] = len(es.list)
	es.list = append(es.list, Edge{Package: p, Range: r})
}

// project adds the edges for deps, declared by version v of source in its
// mandatory dependencies (sourceFeature empty) or in a feature bundle.
func (es *edges) project(source Bucket, v Version, sourceFeature string, deps []Dependency) {
	for _, d := range deps {
		b, single := SingleBucketSpanned(d.Range)
		features := slices.DeleteFunc(slices.Clone(d.Features), func(f string) bool { return f == "" })
		if len(features) == 0 {
			if single {
				es.add(BucketPackage(d.Name, b), d.Range)
			} else {
				es.add(ProxyPackage(source, v, sourceFeature, d.Name, ""), Any())
			}
			continue
		}
		for _, f := range features {
			if single {
				es.add(FeaturePackage(Bucket{Name: d.Name, Bucket: b}, f), d.Range)
			} else {
				es.add(ProxyPackage(source, v, sourceFeature, d.Name, f), Any())
			}
		}
	}
}

func filter(seq iter.Seq[Version], keep func(Version) bool) iter.Seq[Version] {
	return func(yield func(Version) bool) {
		for v := range seq {
			if keep(v) && !yield(v) {
				return
			}
		}
	}
}
