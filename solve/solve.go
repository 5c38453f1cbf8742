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
Package solve resolves package identities by chronological backtracking
over a multiversion.Provider.

At each step the provider picks, among the packages required so far but not
yet decided, the one to decide next. Its versions in the combined range of
its requirements are then tried from newest to oldest. A version whose
dependencies are unknown, or whose dependencies conflict with the decisions
already made, is rejected; when every version of a package is rejected the
search backtracks to the previous decision.
*/
package solve

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"deps.dev/util/multiversion"
)

// Solution maps each package identity of a resolution to its selected
// version.
type Solution map[multiversion.Package]multiversion.Version

// Selection is one entry of a Solution.
type Selection struct {
	Package multiversion.Package
	Version multiversion.Version
}

func (s Selection) String() string {
	return s.Package.String() + "@" + s.Version.String()
}

// Sorted returns the selections ordered by package.
func (s Solution) Sorted() []Selection {
	ps := slices.SortedFunc(maps.Keys(s), multiversion.Package.Compare)
	sel := make([]Selection, len(ps))
	for i, p := range ps {
		sel[i] = Selection{Package: p, Version: s[p]}
	}
	return sel
}

// requirement is one constraint on a package: the range accepted by the
// version of the dependent that brought it in. The root requirement has no
// dependent.
type requirement struct {
	root bool
	by   multiversion.Package
	at   multiversion.Version
	rng  multiversion.Range
}

func (r requirement) String() string {
	if r.root {
		return "root requires " + r.rng.String()
	}
	return fmt.Sprintf("%v@%v requires %v", r.by, r.at, r.rng)
}

type solver struct {
	p     multiversion.Provider
	log   *slog.Logger
	max   int
	steps int

	// order lists the required packages in the order they were first
	// required.
	order    []multiversion.Package
	reqs     map[multiversion.Package][]requirement
	selected map[multiversion.Package]multiversion.Version
	// trail records the package of every requirement added, so that
	// requirements can be removed in reverse order when backtracking.
	trail []multiversion.Package
}

// Resolve finds a version for every package identity reachable from
// version v of root. On failure it returns a *NoSolutionError. The context
// is checked before each version is tried.
func Resolve(ctx context.Context, p multiversion.Provider, root multiversion.Package, v multiversion.Version, opts ...Option) (Solution, error) {
	c, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	s := &solver{
		p:        p,
		log:      c.logger,
		max:      c.maxSteps,
		reqs:     make(map[multiversion.Package][]requirement),
		selected: make(map[multiversion.Package]multiversion.Version),
	}
	s.require(root, requirement{root: true, rng: multiversion.Exact(v)})

	d, err := s.search(ctx)
	if err != nil {
		return nil, err
	}
	if d != nil {
		s.log.Info("no solution", "root", root, "version", v, "steps", s.steps)
		return nil, &NoSolutionError{Root: root, Version: v, Derivation: d}
	}
	s.log.Info("resolved", "root", root, "version", v, "packages", len(s.selected), "steps", s.steps)
	return maps.Clone(Solution(s.selected)), nil
}

// search decides every package still undecided. It returns a derivation
// when the current decisions cannot be extended to a solution, and an error
// when the search was abandoned.
func (s *solver) search(ctx context.Context) (*Derivation, error) {
	var pending []multiversion.Edge
	for _, pkg := range s.order {
		if _, ok := s.selected[pkg]; !ok {
			pending = append(pending, multiversion.Edge{Package: pkg, Range: s.combined(pkg)})
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}
	pkg, _, _ := s.p.ChoosePackageVersion(pending)
	rng := s.combined(pkg)
	fail := &Derivation{Package: pkg, Range: rng, Reason: "no version satisfies " + s.describe(pkg)}

	for v := range s.p.Versions(pkg) {
		if !rng.Contains(v) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.steps++; s.steps > s.max {
			return nil, fmt.Errorf("%w: gave up after %d", ErrTooManySteps, s.max)
		}
		s.log.Debug("trying", "package", pkg, "version", v, "depth", len(s.selected))

		deps, ok := s.p.Dependencies(pkg, v)
		if !ok {
			fail.Causes = append(fail.Causes, &Derivation{Package: pkg, Decided: true, Version: v, Reason: "dependencies are unknown"})
			continue
		}
		mark := len(s.trail)
		s.selected[pkg] = v
		if d := s.apply(pkg, v, deps); d != nil {
			fail.Causes = append(fail.Causes, d)
		} else {
			d, err := s.search(ctx)
			if err != nil {
				return nil, err
			}
			if d == nil {
				return nil, nil
			}
			fail.Causes = append(fail.Causes, &Derivation{
				Package: pkg, Decided: true, Version: v,
				Reason: "leads to a conflict",
				Causes: []*Derivation{d},
			})
		}
		s.log.Debug("backtracking", "package", pkg, "version", v)
		delete(s.selected, pkg)
		s.undo(mark)
	}
	if len(fail.Causes) == 0 {
		fail.Reason = "no versions of " + pkg.String() + " in " + rng.String() + ", " + s.describe(pkg)
	}
	return fail, nil
}

// apply adds the requirements brought in by version v of pkg. It returns a
// derivation when one of them conflicts with a decision or with the other
// requirements on the same package; the requirements added so far are left
// for the caller to undo.
func (s *solver) apply(pkg multiversion.Package, v multiversion.Version, deps []multiversion.Edge) *Derivation {
	for _, e := range deps {
		s.require(e.Package, requirement{by: pkg, at: v, rng: e.Range})
		if sv, ok := s.selected[e.Package]; ok && !e.Range.Contains(sv) {
			return &Derivation{
				Package: pkg, Decided: true, Version: v,
				Reason: fmt.Sprintf("requires %v %v, conflicting with the selected %v@%v", e.Package, e.Range, e.Package, sv),
			}
		}
		if rng := s.combined(e.Package); rng.IsEmpty() {
			return &Derivation{
				Package: pkg, Decided: true, Version: v,
				Reason: fmt.Sprintf("requires %v %v, incompatible with %s", e.Package, e.Range, s.describe(e.Package)),
			}
		}
	}
	return nil
}

func (s *solver) require(pkg multiversion.Package, r requirement) {
	if _, ok := s.reqs[pkg]; !ok {
		s.order = append(s.order, pkg)
	}
	s.reqs[pkg] = append(s.reqs[pkg], r)
	s.trail = append(s.trail, pkg)
}

// undo removes the requirements added since the trail had length mark.
func (s *solver) undo(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		pkg := s.trail[i]
		rs := s.reqs[pkg][:len(s.reqs[pkg])-1]
		if len(rs) > 0 {
			s.reqs[pkg] = rs
			continue
		}
		// A package loses its last requirement in the reverse order it
		// got its first one, so it is the last one in order.
		delete(s.reqs, pkg)
		s.order = s.order[:len(s.order)-1]
	}
	s.trail = s.trail[:mark]
}

// combined returns the intersection of the requirements on pkg.
func (s *solver) combined(pkg multiversion.Package) multiversion.Range {
	rng := multiversion.Any()
	for _, r := range s.reqs[pkg] {
		rng = rng.Intersect(r.rng)
	}
	return rng
}

// describe lists the requirements on pkg.
func (s *solver) describe(pkg multiversion.Package) string {
	rs := slices.Clone(s.reqs[pkg])
	slices.SortStableFunc(rs, func(a, b requirement) int {
		if a.root != b.root {
			if a.root {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.by.String(), b.by.String())
	})
	desc := ""
	for i, r := range rs {
		if i > 0 {
			desc += "; "
		}
		desc += r.String()
	}
	return desc
}
