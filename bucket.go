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
	"slices"
)

// BucketOf returns the bucket of v: its major component.
func BucketOf(v Version) uint32 { return v.Major }

// BucketRange returns [b.0.0, (b+1).0.0), the range of every version in
// bucket b. The last bucket is unbounded above.
func BucketRange(b uint32) Range {
	low := Version{Major: b}
	high, ok := low.bumpMajor()
	if !ok {
		return RangeFromBounds(Incl(low), Unbound())
	}
	return RangeFromBounds(Incl(low), Excl(high))
}

// SingleBucketSpanned returns the bucket of r's lowest version when every
// version in r belongs to that bucket. It reports false when r crosses a
// bucket boundary, and for the empty range, which has no lowest version.
func SingleBucketSpanned(r Range) (uint32, bool) {
	low, ok := r.Lowest()
	if !ok {
		return 0, false
	}
	b := BucketOf(low)
	if r.Intersect(BucketRange(b)) != r {
		return 0, false
	}
	return b, true
}

// VersionsInBucket yields the versions of name in bucket b from newest to
// oldest.
func (x *Index) VersionsInBucket(name string, b uint32) iter.Seq[Version] {
	return func(yield func(Version) bool) {
		e, ok := x.packages[name]
		if !ok {
			return
		}
		// Start just below the first version of the next bucket.
		i := len(e.versions)
		if next, ok := (Version{Major: b}).bumpMajor(); ok {
			i, _ = slices.BinarySearchFunc(e.versions, next, Version.Compare)
		}
		for i--; i >= 0 && BucketOf(e.versions[i]) == b; i-- {
			if !yield(e.versions[i]) {
				return
			}
		}
	}
}

// Collapse yields the first version of seq in each bucket, dropping the
// versions that follow it in the same bucket.
//
// seq must be monotonic, ascending or descending. This is not checked: only
// adjacent versions are compared, so a bucket that reappears after another
// one is yielded again. Use CollapseSorted when the order is unknown.
func Collapse(seq iter.Seq[Version]) iter.Seq[Version] {
	return func(yield func(Version) bool) {
		first := true
		var last uint32
		for v := range seq {
			if b := BucketOf(v); first || b != last {
				first, last = false, b
				if !yield(v) {
					return
				}
			}
		}
	}
}

// CollapseSorted is like Collapse but accepts versions in any order. It
// sorts them newest first, so each bucket is represented by its newest
// version.
func CollapseSorted(seq iter.Seq[Version]) iter.Seq[Version] {
	return func(yield func(Version) bool) {
		vs := slices.SortedFunc(seq, func(a, b Version) int { return b.Compare(a) })
		for v := range Collapse(slices.Values(vs)) {
			if !yield(v) {
				return
			}
		}
	}
}
