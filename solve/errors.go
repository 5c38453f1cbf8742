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

package solve

import (
	"errors"
	"fmt"
	"strings"

	"deps.dev/util/multiversion"
)

// ErrTooManySteps is returned when a resolution tries more versions than
// allowed by WithMaxSteps.
var ErrTooManySteps = errors.New("too many steps")

// Derivation explains why a package, or one version of it, could not be
// part of a solution. Causes holds the failures it was derived from.
type Derivation struct {
	Package multiversion.Package
	// Decided reports whether the failure concerns the single Version
	// rather than every version in Range.
	Decided bool
	Version multiversion.Version
	Range   multiversion.Range
	Reason  string
	Causes  []*Derivation
}

func (d *Derivation) term() string {
	if d.Decided {
		return d.Package.String() + "@" + d.Version.String()
	}
	return d.Package.String() + " " + d.Range.String()
}

// String renders the derivation as a tree, one failure per line.
func (d *Derivation) String() string {
	var b strings.Builder
	var walk func(d *Derivation, prefix1, prefix2 string)
	walk = func(d *Derivation, prefix1, prefix2 string) {
		fmt.Fprintf(&b, "%s%s: %s\n", prefix1, d.term(), d.Reason)
		for i, c := range d.Causes {
			p1 := "├─ "
			p2 := "│  "
			if i == len(d.Causes)-1 {
				p1 = "└─ "
				p2 = "   "
			}
			walk(c, prefix2+p1, prefix2+p2)
		}
	}
	walk(d, "", "")
	return b.String()
}

// Leaves returns the failures at the bottom of the derivation, the ones
// not derived from other failures, in depth first order.
func (d *Derivation) Leaves() []*Derivation {
	if len(d.Causes) == 0 {
		return []*Derivation{d}
	}
	var ls []*Derivation
	for _, c := range d.Causes {
		ls = append(ls, c.Leaves()...)
	}
	return ls
}

// NoSolutionError is returned when no selection of versions satisfies the
// requirements of the root.
type NoSolutionError struct {
	Root       multiversion.Package
	Version    multiversion.Version
	Derivation *Derivation
}

func (e *NoSolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no solution for %v@%v", e.Root, e.Version)
	if e.Derivation != nil {
		b.WriteString(":\n")
		b.WriteString(strings.TrimSuffix(e.Derivation.String(), "\n"))
	}
	return b.String()
}
