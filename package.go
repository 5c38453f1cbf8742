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
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedPackage is returned by ParsePackage for strings that do not
// encode a Bucket or a Feature.
var ErrMalformedPackage = errors.New("malformed package")

// Kind indicates which synthetic identity a Package is.
type Kind byte

const (
	// UnknownKind is the Kind of the zero Package, which is not a valid
	// identity: String, Name and the Provider methods panic on it.
	UnknownKind Kind = iota

	// BucketKind packages hold the versions of a name sharing one major
	// component.
	BucketKind

	// FeatureKind packages hold the versions of a bucket at which an
	// optional feature exists. Selecting a feature at a version also
	// selects its base bucket at that same version.
	FeatureKind

	// ProxyKind packages stand for a single dependency edge whose range
	// covers several buckets of its target. Their versions are one
	// representative per target bucket; choosing one decides the bucket.
	ProxyKind
)

func (k Kind) String() string {
	switch k {
	case UnknownKind:
		return "UnknownKind"
	case BucketKind:
		return "Bucket"
	case FeatureKind:
		return "Feature"
	case ProxyKind:
		return "Proxy"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Bucket names one major-version line of a package.
type Bucket struct {
	Name   string
	Bucket uint32
}

func (b Bucket) String() string {
	return b.Name + "#" + strconv.FormatUint(uint64(b.Bucket), 10)
}

// Package is a synthetic package identity handed to a solver. Which fields
// are meaningful depends on Kind:
//
//	BucketKind:  Bucket.
//	FeatureKind: Bucket (the base) and Feature.
//	ProxyKind:   Bucket and SourceVersion (the dependent), SourceFeature
//	             (the dependent's feature declaring the edge, empty for a
//	             mandatory edge), Target and Feature (the requested feature
//	             of the target, empty for none).
//
// Packages are comparable and may be used as map keys. The zero Package has
// UnknownKind and must not be used as an identity.
type Package struct {
	Kind          Kind
	Bucket        Bucket
	Feature       string
	SourceVersion Version
	SourceFeature string
	Target        string
}

// BucketPackage returns the Bucket identity for bucket b of name.
func BucketPackage(name string, b uint32) Package {
	return Package{Kind: BucketKind, Bucket: Bucket{Name: name, Bucket: b}}
}

// FeaturePackage returns the Feature identity for feature of base.
func FeaturePackage(base Bucket, feature string) Package {
	return Package{Kind: FeatureKind, Bucket: base, Feature: feature}
}

// ProxyPackage returns the Proxy identity for the edge toward target
// declared by version v of source. sourceFeature names the feature of the
// source that declares the edge and feature the requested feature of the
// target; either may be empty.
func ProxyPackage(source Bucket, v Version, sourceFeature, target, feature string) Package {
	return Package{
		Kind:          ProxyKind,
		Bucket:        source,
		SourceVersion: v,
		SourceFeature: sourceFeature,
		Target:        target,
		Feature:       feature,
	}
}

// Name returns the name of the package whose versions p selects: the
// bucket's name for buckets and features, the target for proxies.
func (p Package) Name() string {
	switch p.Kind {
	case BucketKind, FeatureKind:
		return p.Bucket.Name
	case ProxyKind:
		return p.Target
	}
	panic(fmt.Sprintf("unknown package kind %v", p.Kind))
}

// String encodes p. Buckets and features use the forms accepted by
// ParsePackage; proxies use a form ParsePackage always rejects.
func (p Package) String() string {
	switch p.Kind {
	case BucketKind:
		return p.Bucket.String()
	case FeatureKind:
		return p.Bucket.String() + "/" + p.Feature
	case ProxyKind:
		s := p.Bucket.String() + "@" + p.SourceVersion.String()
		if p.SourceFeature != "" {
			s += "/" + p.SourceFeature
		}
		s += "->" + p.Target
		if p.Feature != "" {
			s += "/" + p.Feature
		}
		return s
	}
	panic(fmt.Sprintf("unknown package kind %v", p.Kind))
}

// Compare orders packages by kind and then field by field.
func (p Package) Compare(q Package) int {
	if c := cmpUint32(uint32(p.Kind), uint32(q.Kind)); c != 0 {
		return c
	}
	if c := strings.Compare(p.Bucket.Name, q.Bucket.Name); c != 0 {
		return c
	}
	if c := cmpUint32(p.Bucket.Bucket, q.Bucket.Bucket); c != 0 {
		return c
	}
	if c := p.SourceVersion.Compare(q.SourceVersion); c != 0 {
		return c
	}
	if c := strings.Compare(p.SourceFeature, q.SourceFeature); c != 0 {
		return c
	}
	if c := strings.Compare(p.Target, q.Target); c != 0 {
		return c
	}
	return strings.Compare(p.Feature, q.Feature)
}

// ParsePackage decodes "name#bucket" into a Bucket and
// "name#bucket/feature" into a Feature. The bucket must be a decimal
// number without leading zeros. Any other string, including the encoding
// of a Proxy, is rejected with ErrMalformedPackage.
func ParsePackage(s string) (Package, error) {
	name, rest, ok := strings.Cut(s, "#")
	if !ok {
		return Package{}, fmt.Errorf("%w %q: missing bucket", ErrMalformedPackage, s)
	}
	if name == "" {
		return Package{}, fmt.Errorf("%w %q: empty name", ErrMalformedPackage, s)
	}
	if strings.Contains(rest, "#") {
		return Package{}, fmt.Errorf("%w %q: more than one #", ErrMalformedPackage, s)
	}
	bs, feature, hasFeature := strings.Cut(rest, "/")
	b, err := parseBucket(bs)
	if err != nil {
		return Package{}, fmt.Errorf("%w %q: %v", ErrMalformedPackage, s, err)
	}
	if !hasFeature {
		return BucketPackage(name, b), nil
	}
	if feature == "" {
		return Package{}, fmt.Errorf("%w %q: empty feature", ErrMalformedPackage, s)
	}
	if strings.Contains(feature, "/") {
		return Package{}, fmt.Errorf("%w %q: more than one /", ErrMalformedPackage, s)
	}
	return FeaturePackage(Bucket{Name: name, Bucket: b}, feature), nil
}

func parseBucket(s string) (uint32, error) {
	if s == "" {
		return 0, errors.New("empty bucket")
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("bucket %q has a leading zero", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("bucket %q is not a decimal number", s)
		}
	}
	b, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bucket %q: %v", s, err)
	}
	return uint32(b), nil
}
