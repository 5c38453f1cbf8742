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
Package pgsource resolves package identities with the PubGrub solver of
github.com/contriboss/pubgrub-go, by exposing a multiversion.Provider as a
pubgrub Source.

Every identity is named by its multiversion.Package encoding. A version
whose dependencies the provider does not know is left out of the versions
offered to the solver, so that it is never selected.
*/
package pgsource

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	pg "github.com/contriboss/pubgrub-go"

	"deps.dev/util/multiversion"
	"deps.dev/util/multiversion/solve"
)

// Version adapts a multiversion.Version to pubgrub.
type Version struct {
	multiversion.Version
}

// Sort implements pubgrub.Version. Versions of other types are ordered by
// their string form, the way pubgrub.SimpleVersion orders them.
func (v Version) Sort(other pg.Version) int {
	if o, ok := other.(Version); ok {
		return v.Compare(o.Version)
	}
	return strings.Compare(v.String(), other.String())
}

// Condition converts r to a pubgrub condition holding the same versions.
func Condition(r multiversion.Range) pg.Condition {
	low, ok := r.Lowest()
	if !ok {
		return pg.NewVersionSetCondition(pg.EmptyVersionSet())
	}
	if r.IsAny() {
		return pg.NewVersionSetCondition(pg.FullVersionSet())
	}
	high, ok := r.Upper()
	if !ok {
		return pg.NewVersionSetCondition(pg.NewLowerBoundVersionSet(Version{low}, true))
	}
	return pg.NewVersionSetCondition(pg.NewVersionRangeSet(Version{low}, true, Version{high}, false))
}

// Source implements pubgrub.Source on top of a multiversion.Provider.
// It is not safe for concurrent use.
type Source struct {
	p multiversion.Provider
	// names maps the name of every identity handed to the solver back to
	// the identity.
	names map[pg.Name]multiversion.Package
}

var _ pg.Source = (*Source)(nil)

// NewSource creates a Source reading from p.
func NewSource(p multiversion.Provider) *Source {
	return &Source{p: p, names: make(map[pg.Name]multiversion.Package)}
}

// Name returns the pubgrub name of pkg, registering it with the source.
func (s *Source) Name(pkg multiversion.Package) pg.Name {
	n := pg.MakeName(pkg.String())
	s.names[n] = pkg
	return n
}

// Package returns the identity registered under name.
func (s *Source) Package(name pg.Name) (multiversion.Package, bool) {
	pkg, ok := s.names[name]
	return pkg, ok
}

// GetVersions implements pubgrub.Source, returning the versions of the
// identity with known dependencies, oldest first.
func (s *Source) GetVersions(name pg.Name) ([]pg.Version, error) {
	pkg, ok := s.names[name]
	if !ok {
		return nil, &pg.PackageNotFoundError{Package: name}
	}
	var vs []pg.Version
	for v := range s.p.Versions(pkg) {
		if _, ok := s.p.Dependencies(pkg, v); ok {
			vs = append(vs, Version{v})
		}
	}
	slices.Reverse(vs)
	return vs, nil
}

// GetDependencies implements pubgrub.Source.
func (s *Source) GetDependencies(name pg.Name, version pg.Version) ([]pg.Term, error) {
	pkg, ok := s.names[name]
	if !ok {
		return nil, &pg.PackageNotFoundError{Package: name}
	}
	v, ok := version.(Version)
	if !ok {
		return nil, &pg.PackageVersionNotFoundError{Package: name, Version: version}
	}
	deps, ok := s.p.Dependencies(pkg, v.Version)
	if !ok {
		return nil, &pg.PackageVersionNotFoundError{Package: name, Version: version}
	}
	terms := make([]pg.Term, len(deps))
	for i, e := range deps {
		terms[i] = pg.NewTerm(s.Name(e.Package), Condition(e.Range))
	}
	return terms, nil
}

// Option configures a resolution.
type Option func(*config) error

type config struct {
	logger   *slog.Logger
	maxSteps int
}

// WithLogger sets the logger handed to the PubGrub solver. If not set,
// logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// WithMaxSteps bounds the number of solver iterations.
func WithMaxSteps(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return errors.New("max steps must be positive")
		}
		c.maxSteps = n
		return nil
	}
}

// Resolve finds a version for every package identity reachable from
// version v of root, using the PubGrub solver. On failure the error wraps
// the solver's *pubgrub.NoSolutionError, which explains the conflict.
func Resolve(p multiversion.Provider, root multiversion.Package, v multiversion.Version, opts ...Option) (solve.Solution, error) {
	c := &config{maxSteps: solve.DefaultMaxSteps}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	src := NewSource(p)
	rs := pg.NewRootSource()
	rs.AddPackage(src.Name(root), Condition(multiversion.Exact(v)))
	solver := pg.NewSolverWithOptions(
		[]pg.Source{rs, src},
		pg.WithIncompatibilityTracking(true),
		pg.WithMaxSteps(c.maxSteps),
		pg.WithLogger(c.logger),
	)
	sol, err := solver.Solve(rs.Term())
	if err != nil {
		return nil, fmt.Errorf("resolving %v@%v: %w", root, v, err)
	}

	out := make(solve.Solution)
	for _, nv := range sol {
		pkg, ok := src.Package(nv.Name)
		if !ok {
			// The synthetic root.
			continue
		}
		pv, ok := nv.Version.(Version)
		if !ok {
			return nil, fmt.Errorf("%v: unexpected version %v", pkg, nv.Version)
		}
		out[pkg] = pv.Version
	}
	c.logger.Info("resolved", "root", root, "version", v, "packages", len(out))
	return out, nil
}
