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
	"iter"
	"maps"
	"slices"
)

// Dependency is one edge of a Record: the dependency's name, the range of
// its versions the dependent accepts and the dependency's features it
// requests.
type Dependency struct {
	Name     string
	Range    Range
	Features []string
}

// Dep is a convenience constructor for a Dependency.
func Dep(name string, r Range, features ...string) Dependency {
	return Dependency{Name: name, Range: r, Features: features}
}

// depList is an ordered list of dependencies keyed by name. A later
// dependency on an existing name replaces the earlier one in place.
type depList struct {
	deps []Dependency
	pos  map[string]int
}

func (l *depList) put(d Dependency) {
	if i, ok := l.pos[d.Name]; ok {
		l.deps[i] = d
		return
	}
	if l.pos == nil {
		l.pos = make(map[string]int)
	}
	l.pos[d.Name] = len(l.deps)
	l.deps = append(l.deps, d)
}

func (l *depList) get(name string) (Dependency, bool) {
	i, ok := l.pos[name]
	if !ok {
		return Dependency{}, false
	}
	return l.deps[i], true
}

// Record holds the dependencies of one version of a package: its mandatory
// dependencies and, per feature, the optional dependencies that the
// feature brings in.
type Record struct {
	mandatory depList
	features  []string
	optional  map[string]*depList
}

// Mandatory returns the mandatory dependencies in registration order.
func (r *Record) Mandatory() []Dependency { return slices.Clone(r.mandatory.deps) }

// MandatoryDep returns the mandatory dependency on name.
func (r *Record) MandatoryDep(name string) (Dependency, bool) { return r.mandatory.get(name) }

// Features returns the feature names in registration order.
func (r *Record) Features() []string { return slices.Clone(r.features) }

// HasFeature reports whether the feature was registered for this version.
func (r *Record) HasFeature(feature string) bool {
	_, ok := r.optional[feature]
	return ok
}

// Optional returns the dependencies brought in by feature, in registration
// order. It reports false when the feature is not registered.
func (r *Record) Optional(feature string) ([]Dependency, bool) {
	l, ok := r.optional[feature]
	if !ok {
		return nil, false
	}
	return slices.Clone(l.deps), true
}

// OptionalDep returns the dependency on name brought in by feature.
func (r *Record) OptionalDep(feature, name string) (Dependency, bool) {
	l, ok := r.optional[feature]
	if !ok {
		return Dependency{}, false
	}
	return l.get(name)
}

func (r *Record) bundle(feature string) *depList {
	l, ok := r.optional[feature]
	if !ok {
		if r.optional == nil {
			r.optional = make(map[string]*depList)
		}
		l = &depList{}
		r.optional[feature] = l
		r.features = append(r.features, feature)
	}
	return l
}

type entry struct {
	// versions is kept in ascending order.
	versions []Version
	records  map[Version]*Record
}

// Index holds the registered versions of every package together with their
// dependencies. Registration is not safe for concurrent use; once populated
// an Index may be read from many goroutines. The zero value is an empty
// Index ready to use.
type Index struct {
	packages map[string]*entry
}

// NewIndex creates a new, empty, Index.
func NewIndex() *Index {
	return &Index{packages: make(map[string]*entry)}
}

// record returns the record for (name, v), creating the package and the
// version as needed.
func (x *Index) record(name string, v Version) *Record {
	if x.packages == nil {
		x.packages = make(map[string]*entry)
	}
	e, ok := x.packages[name]
	if !ok {
		e = &entry{records: make(map[Version]*Record)}
		x.packages[name] = e
	}
	if r, ok := e.records[v]; ok {
		return r
	}
	i, _ := slices.BinarySearchFunc(e.versions, v, Version.Compare)
	e.versions = slices.Insert(e.versions, i, v)
	r := &Record{}
	e.records[v] = r
	return r
}

// Register makes version v of name known along with mandatory
// dependencies. Registering an existing version merges: a dependency on a
// name already present replaces the previous one, everything else is kept.
func (x *Index) Register(name string, v Version, deps ...Dependency) {
	r := x.record(name, v)
	for _, d := range deps {
		r.mandatory.put(d)
	}
}

// RegisterFeature adds the optional dependencies brought in by feature to
// version v of name. The version itself becomes known if it was not
// already, and the feature exists even when deps is empty.
func (x *Index) RegisterFeature(name string, v Version, feature string, deps ...Dependency) {
	l := x.record(name, v).bundle(feature)
	for _, d := range deps {
		l.put(d)
	}
}

// AvailableVersions yields the versions of name from newest to oldest. The
// sequence is empty for an unknown name.
func (x *Index) AvailableVersions(name string) iter.Seq[Version] {
	return func(yield func(Version) bool) {
		e, ok := x.packages[name]
		if !ok {
			return
		}
		for _, v := range slices.Backward(e.versions) {
			if !yield(v) {
				return
			}
		}
	}
}

// Lookup returns the record for version v of name.
func (x *Index) Lookup(name string, v Version) (*Record, bool) {
	e, ok := x.packages[name]
	if !ok {
		return nil, false
	}
	r, ok := e.records[v]
	return r, ok
}

// Packages returns the registered package names in sorted order.
func (x *Index) Packages() []string {
	return slices.Sorted(maps.Keys(x.packages))
}

// Len returns the number of registered package versions.
func (x *Index) Len() int {
	n := 0
	for _, e := range x.packages {
		n += len(e.versions)
	}
	return n
}
