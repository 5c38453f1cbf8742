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
multiresolve is an example program that resolves one version of a package
from a universe file, letting several major versions of a dependency and
optional features coexist in the result. It prints the selected package
identities followed by the resolved graph, or the conflict explaining why
no resolution exists.

The universe file uses the format of internal/resolvetest. It either holds
the body of a single universe, or -- Universe blocks from which -universe
selects one.

The package is given as name, name#bucket or name#bucket/feature; a plain
name stands for the bucket of the requested version.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"deps.dev/util/multiversion"
	"deps.dev/util/multiversion/internal/resolvetest"
	"deps.dev/util/multiversion/pgsource"
	"deps.dev/util/multiversion/solve"
)

const usage = "Usage: multiresolve [-engine=backtrack|pubgrub] [-universe name] [-cache n] [-debug] <universe-file> <package> <version>"

var (
	engine   = flag.String("engine", "backtrack", "solver to use: backtrack or pubgrub")
	universe = flag.String("universe", "", "name of the universe block to use")
	cache    = flag.Int("cache", 0, "number of package identities whose versions are memoized")
	debug    = flag.Bool("debug", false, "log solver steps to stderr")
)

func main() {
	log.SetFlags(0)
	flag.Usage = func() { log.Print(usage) }
	flag.Parse()
	if flag.NArg() != 3 {
		log.Fatal(usage)
	}

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	x, err := loadUniverse(flag.Arg(0), *universe)
	if err != nil {
		log.Fatal(err)
	}
	v, err := multiversion.ParseVersion(flag.Arg(2))
	if err != nil {
		log.Fatal(err)
	}
	root, err := parseRoot(flag.Arg(1), v)
	if err != nil {
		log.Fatal(err)
	}

	p := multiversion.NewProjector(x, multiversion.WithVersionCache(*cache))
	start := time.Now()
	log.Printf("Resolving: %v@%v", root, v)
	var sol solve.Solution
	switch *engine {
	case "backtrack":
		sol, err = solve.Resolve(context.Background(), p, root, v, solve.WithLogger(logger))
	case "pubgrub":
		sol, err = pgsource.Resolve(p, root, v, pgsource.WithLogger(logger))
	default:
		log.Fatalf("Unknown engine %q\n%s", *engine, usage)
	}
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Resolved in %v", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 10, 2, 2, ' ', 0)
	fmt.Fprintf(w, "Package\tVersion\n")
	for _, s := range sol.Sorted() {
		fmt.Fprintf(w, "%s\t%s\n", s.Package, s.Version)
	}
	w.Flush()

	g, err := multiversion.BuildGraph(p, root, sol)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println()
	fmt.Print(g)
}

// loadUniverse reads the universe from file, selecting the named block if
// name is not empty.
func loadUniverse(file, name string) (*multiversion.Index, error) {
	if name != "" {
		a, err := resolvetest.ParseFiles(file)
		if err != nil {
			return nil, err
		}
		x, ok := a.Universe[name]
		if !ok {
			return nil, fmt.Errorf("%s: no universe named %q", file, name)
		}
		return x, nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return resolvetest.ParseUniverse(string(b))
}

// parseRoot parses the root identity. A plain name selects the bucket of v.
func parseRoot(s string, v multiversion.Version) (multiversion.Package, error) {
	if s != "" && !strings.Contains(s, "#") {
		return multiversion.BucketPackage(s, multiversion.BucketOf(v)), nil
	}
	return multiversion.ParsePackage(s)
}
