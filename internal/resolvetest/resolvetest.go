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
Package resolvetest provides a way to define test data for resolutions of
bucketed and feature-aware package identities.

Test data follows a simple format that describes universes (entire package
ecosystems), resolved graphs, and test cases.

	Below is the definition of a universe named sample. Indentation uses
	tabs: packages, then their versions, then dependencies. A dependency
	names a package, a range and optionally requested features. A line
	starting with + declares a feature; the dependencies it brings in are
	indented below it.

	-- Universe sample
	alice
		1.0.0
			bob@[1.0.0,3.0.0) extra
			+tools
				carol@*
	bob
		1.0.0
		2.0.0
			+extra
	carol
		1.0.0
	-- END

	Below is the definition of a test. It links a universe, a resolve root
	and version, and either the expected selections or Error. A Graph line
	names the expected resolved graph.

	-- Test alice
	Resolve alice#1 1.0.0
	Universe sample
	Graph alice
	Want
		alice#1 1.0.0
		alice#1@1.0.0->bob/extra 2.0.0
		bob#2 2.0.0
		bob#2/extra 2.0.0
	-- END

	Below is the definition of a graph, as rendered by Graph.String.

	-- Graph alice
	alice 1.0.0
	└─ bob@[2.0.0,3.0.0) 2.0.0 +extra
	-- END
*/
package resolvetest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"deps.dev/util/multiversion"
)

const (
	startBlockUniverse = "-- universe "
	startBlockGraph    = "-- graph "
	startBlockTest     = "-- test "
	endBlock           = "-- end"
	prefixTestUniverse = "universe "
	prefixTestResolve  = "resolve "
	prefixTestGraph    = "graph "
	lineTestWant       = "want"
	lineTestError      = "error"
)

// Artifact describes the parsed content from a test data file.
type Artifact struct {
	// Universe holds the defined universes, indexed by name.
	Universe map[string]*multiversion.Index
	// Graph holds the defined resolved graphs, as text, indexed by name.
	Graph map[string]string
	// Test holds the defined tests in the order in which they were defined.
	Test []*Test
}

// Test describes a parsed test.
type Test struct {
	// Name is the name of the test.
	Name string
	// Root and Version are the identity and version to resolve.
	Root    multiversion.Package
	Version multiversion.Version
	// Universe holds the universe to use for resolution.
	Universe     *multiversion.Index
	UniverseName string
	// Want maps the encoding of each expected identity to its version.
	Want map[string]multiversion.Version
	// WantError is set when the resolution is expected to fail.
	WantError bool
	// Graph holds the expected resolved graph, if any.
	Graph     string
	GraphName string
}

// parsedTest describes a test during the parsing phase of the data.
// It contains identifiers instead of objects that may be parsed later.
type parsedTest struct {
	name      string
	root      multiversion.Package
	version   multiversion.Version
	universe  string
	graph     string
	want      map[string]multiversion.Version
	wantError bool
}

// ParseFiles parses the data from the given files and creates test
// artifacts: universes, resolved graphs, and tests.
func ParseFiles(files ...string) (*Artifact, error) {
	var b bytes.Buffer
	for _, file := range files {
		p, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		b.Write(p)
		b.WriteRune('\n')
	}

	return Parse(&b)
}

// Parse parses the data from the given reader and creates test artifacts:
// universes, resolved graphs, and tests.
func Parse(r io.Reader) (*Artifact, error) {
	a := &Artifact{
		Universe: make(map[string]*multiversion.Index),
		Graph:    make(map[string]string),
	}
	sc := bufio.NewScanner(r)
	var parsedTests []*parsedTest
	seenTest := make(map[string]bool)
	for line := 1; sc.Scan(); line++ {
		curLine := line
		l := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(strings.ToLower(l), startBlockUniverse):
			name, err := parseName(l[len(startBlockUniverse):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", curLine, err)
			}
			if a.Universe[name] != nil {
				return nil, fmt.Errorf("line %d: duplicate universe name: %q", curLine, name)
			}
			lines, err := blockLines(sc, &line)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing universe: %w", curLine, err)
			}
			a.Universe[name], err = ParseUniverse(strings.Join(lines, "\n"))
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing universe: %w", curLine, err)
			}

		case strings.HasPrefix(strings.ToLower(l), startBlockGraph):
			name, err := parseName(l[len(startBlockGraph):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", curLine, err)
			}
			if _, ok := a.Graph[name]; ok {
				return nil, fmt.Errorf("line %d: duplicate graph name: %q", curLine, name)
			}
			lines, err := blockLines(sc, &line)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing graph %s: %w", curLine, name, err)
			}
			var b strings.Builder
			for _, l := range lines {
				if strings.TrimSpace(l) == "" {
					continue
				}
				b.WriteString(strings.TrimRight(l, " \t"))
				b.WriteString("\n")
			}
			a.Graph[name] = b.String()

		case strings.HasPrefix(strings.ToLower(l), startBlockTest):
			name, err := parseName(l[len(startBlockTest):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", curLine, err)
			}
			if seenTest[name] {
				return nil, fmt.Errorf("line %d: duplicate test name: %q", curLine, name)
			}
			t, err := parseTest(sc, &line, name)
			if err != nil {
				return nil, fmt.Errorf("line %d: cannot parse test: %w", curLine, err)
			}
			parsedTests = append(parsedTests, t)
			seenTest[name] = true
		}
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	// Convert parsed tests into artifact tests.
	a.Test = make([]*Test, len(parsedTests))
	for i, pt := range parsedTests {
		u, ok := a.Universe[pt.universe]
		if !ok {
			return nil, fmt.Errorf("test %s: unknown universe %q", pt.name, pt.universe)
		}
		g, ok := a.Graph[pt.graph]
		if pt.graph != "" && !ok {
			return nil, fmt.Errorf("test %s: unknown graph %q", pt.name, pt.graph)
		}
		if pt.want == nil && !pt.wantError {
			return nil, fmt.Errorf("test %s: neither Want nor Error given", pt.name)
		}
		a.Test[i] = &Test{
			Name:         pt.name,
			Root:         pt.root,
			Version:      pt.version,
			Universe:     u,
			UniverseName: pt.universe,
			Want:         pt.want,
			WantError:    pt.wantError,
			Graph:        g,
			GraphName:    pt.graph,
		}
	}

	return a, nil
}

func parseName(s string) (string, error) {
	ts := strings.TrimSpace(s)
	if ts == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	return ts, nil
}

// blockLines returns the lines up to the end of the current block.
func blockLines(sc *bufio.Scanner, line *int) ([]string, error) {
	var lines []string
	for sc.Scan() {
		*line++
		l := sc.Text()
		if strings.TrimSpace(strings.ToLower(l)) == endBlock {
			return lines, nil
		}
		lines = append(lines, l)
	}
	return nil, fmt.Errorf("%w, want %q", io.ErrUnexpectedEOF, endBlock)
}

// ParseUniverse builds an Index from the body of a universe block.
func ParseUniverse(s string) (*multiversion.Index, error) {
	x := multiversion.NewIndex()
	var (
		name    string
		v       multiversion.Version
		haveV   bool
		feature string
	)
	for i, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) == "" || strings.HasPrefix(strings.TrimSpace(l), "#") {
			continue
		}
		depth := len(l) - len(strings.TrimLeft(l, "\t"))
		if strings.HasPrefix(l[depth:], " ") {
			return nil, fmt.Errorf("line %d: indentation must use tabs", i+1)
		}
		text := strings.TrimSpace(l)
		switch {
		case depth == 0:
			name, haveV = text, false
		case depth == 1:
			if name == "" {
				return nil, fmt.Errorf("line %d: version outside of a package", i+1)
			}
			var err error
			if v, err = multiversion.ParseVersion(text); err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			haveV, feature = true, ""
			x.Register(name, v)
		case depth == 2 && strings.HasPrefix(text, "+"):
			if !haveV {
				return nil, fmt.Errorf("line %d: feature outside of a version", i+1)
			}
			feature = strings.TrimSpace(text[1:])
			if feature == "" {
				return nil, fmt.Errorf("line %d: empty feature name", i+1)
			}
			x.RegisterFeature(name, v, feature)
		case depth == 2:
			if !haveV {
				return nil, fmt.Errorf("line %d: dependency outside of a version", i+1)
			}
			d, err := ParseDependency(text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			feature = ""
			x.Register(name, v, d)
		case depth == 3:
			if feature == "" {
				return nil, fmt.Errorf("line %d: optional dependency outside of a feature", i+1)
			}
			d, err := ParseDependency(text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			x.RegisterFeature(name, v, feature, d)
		default:
			return nil, fmt.Errorf("line %d: unexpected indentation", i+1)
		}
	}
	return x, nil
}

// ParseDependency parses "name@range feature...".
func ParseDependency(s string) (multiversion.Dependency, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return multiversion.Dependency{}, fmt.Errorf("empty dependency")
	}
	name, rs, ok := strings.Cut(fields[0], "@")
	if !ok || name == "" {
		return multiversion.Dependency{}, fmt.Errorf("dependency %q: want name@range", s)
	}
	r, err := multiversion.ParseRange(rs)
	if err != nil {
		return multiversion.Dependency{}, fmt.Errorf("dependency %q: %w", s, err)
	}
	return multiversion.Dep(name, r, fields[1:]...), nil
}

func parseTest(sc *bufio.Scanner, line *int, name string) (*parsedTest, error) {
	t := &parsedTest{
		name: name,
	}
	inWant := false
	for sc.Scan() {
		*line++
		raw := sc.Text()
		l := strings.TrimSpace(raw)
		if inWant && strings.HasPrefix(raw, "\t") && l != "" {
			fields := strings.Fields(l)
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: invalid selection %q", *line, l)
			}
			v, err := multiversion.ParseVersion(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			t.want[fields[0]] = v
			continue
		}
		inWant = false

		switch {
		case strings.ToLower(l) == endBlock:
			return t, nil

		case strings.ToLower(l) == lineTestWant:
			inWant = true
			if t.want == nil {
				t.want = make(map[string]multiversion.Version)
			}

		case strings.ToLower(l) == lineTestError:
			t.wantError = true

		case strings.HasPrefix(strings.ToLower(l), prefixTestUniverse):
			n, err := parseName(l[len(prefixTestUniverse):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			t.universe = n

		case strings.HasPrefix(strings.ToLower(l), prefixTestGraph):
			n, err := parseName(l[len(prefixTestGraph):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			t.graph = n

		case strings.HasPrefix(strings.ToLower(l), prefixTestResolve):
			fields := strings.Fields(l[len(prefixTestResolve):])
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: invalid resolve line %q", *line, l)
			}
			p, err := multiversion.ParsePackage(fields[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			v, err := multiversion.ParseVersion(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", *line, err)
			}
			t.root, t.version = p, v
		}
	}
	return nil, fmt.Errorf("%w, want %q", io.ErrUnexpectedEOF, endBlock)
}
