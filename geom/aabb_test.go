package geom

import "testing"

// TestAABBIntersects verifies overlap detection including touching faces.
func TestAABBIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b AABB
		want bool
	}{
		{
			name: "identical boxes",
			a:    AABB{Vec3{-16, -16, -16}, Vec3{16, 16, 16}},
			b:    AABB{Vec3{-16, -16, -16}, Vec3{16, 16, 16}},
			want: true,
		},
		{
			name: "partial overlap on x",
			a:    AABB{Vec3{-16, -16, -16}, Vec3{16, 16, 16}},
			b:    AABB{Vec3{4, -16, -16}, Vec3{36, 16, 16}},
			want: true,
		},
		{
			name: "touching faces count as overlap",
			a:    AABB{Vec3{0, 0, 0}, Vec3{10, 10, 10}},
			b:    AABB{Vec3{10, 0, 0}, Vec3{20, 10, 10}},
			want: true,
		},
		{
			name: "disjoint on x",
			a:    AABB{Vec3{0, 0, 0}, Vec3{10, 10, 10}},
			b:    AABB{Vec3{11, 0, 0}, Vec3{20, 10, 10}},
			want: false,
		},
		{
			name: "overlap on x and y but not z",
			a:    AABB{Vec3{0, 0, 0}, Vec3{10, 10, 10}},
			b:    AABB{Vec3{5, 5, 50}, Vec3{15, 15, 60}},
			want: false,
		},
		{
			name: "one inside the other",
			a:    AABB{Vec3{-100, -100, -100}, Vec3{100, 100, 100}},
			b:    AABB{Vec3{-1, -1, -1}, Vec3{1, 1, 1}},
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Intersects(tc.b); got != tc.want {
				t.Errorf("Intersects = %v, want %v", got, tc.want)
			}
			// Overlap is symmetric
			if got := tc.b.Intersects(tc.a); got != tc.want {
				t.Errorf("reverse Intersects = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestAABBContains verifies full enclosure.
func TestAABBContains(t *testing.T) {
	outer := AABB{Vec3{-10, -10, -10}, Vec3{10, 10, 10}}

	if !outer.Contains(AABB{Vec3{-5, -5, -5}, Vec3{5, 5, 5}}) {
		t.Error("inner box should be contained")
	}
	if !outer.Contains(outer) {
		t.Error("a box should contain itself")
	}
	if outer.Contains(AABB{Vec3{-5, -5, -5}, Vec3{5, 5, 11}}) {
		t.Error("box poking out on z should not be contained")
	}
}

// TestAABBTranslated verifies translation moves both corners.
func TestAABBTranslated(t *testing.T) {
	box := AABB{Vec3{-16, -16, -16}, Vec3{16, 16, 16}}
	got := box.Translated(Vec3{20, 0, -4})

	want := AABB{Vec3{4, -16, -20}, Vec3{36, 16, 12}}
	if got != want {
		t.Errorf("Translated = %+v, want %+v", got, want)
	}
}
