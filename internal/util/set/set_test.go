// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package set

import (
	"testing"

	"go.astrophena.name/wirefeed/internal/testutil"
)

func TestSet(t *testing.T) {
	t.Parallel()

	s := Of("b", "a")
	testutil.AssertEqual(t, s.Has("a"), true)
	testutil.AssertEqual(t, s.Has("c"), false)

	testutil.AssertEqual(t, s.Add("c"), true)
	testutil.AssertEqual(t, s.Add("c"), false)
	testutil.AssertEqual(t, s.Len(), 3)

	testutil.AssertEqual(t, s.Del("a"), true)
	testutil.AssertEqual(t, s.Del("a"), false)
	testutil.AssertEqual(t, s.Len(), 2)

	var zero Set[int]
	testutil.AssertEqual(t, zero.Has(1), false)
	testutil.AssertEqual(t, zero.Len(), 0)
}

func TestFIFO(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		limit   int
		add     []string
		wantIn  []string
		wantOut []string
	}{
		"under limit": {
			limit:  3,
			add:    []string{"a", "b"},
			wantIn: []string{"a", "b"},
		},
		"evicts oldest": {
			limit:   2,
			add:     []string{"a", "b", "c"},
			wantIn:  []string{"b", "c"},
			wantOut: []string{"a"},
		},
		"duplicate keeps position": {
			limit:   2,
			add:     []string{"a", "b", "a", "c"},
			wantIn:  []string{"b", "c"},
			wantOut: []string{"a"},
		},
		"zero limit holds one": {
			limit:   0,
			add:     []string{"a", "b"},
			wantIn:  []string{"b"},
			wantOut: []string{"a"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := NewFIFO[string](tc.limit)
			for _, v := range tc.add {
				f.Add(v)
			}
			for _, v := range tc.wantIn {
				if !f.Has(v) {
					t.Errorf("%q must be in the set", v)
				}
			}
			for _, v := range tc.wantOut {
				if f.Has(v) {
					t.Errorf("%q must not be in the set", v)
				}
			}
			testutil.AssertEqual(t, f.Len(), len(tc.wantIn))
		})
	}
}
