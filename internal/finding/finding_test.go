package finding

import "testing"

func TestIdentityDeterministic(t *testing.T) {
	cases := []struct {
		code   string
		path   string
		symbol string
		want   string
	}{
		{"WD-M6-003", "src/engine/loop.ts", "", "WD-M6-003-src_engine_loop_ts"},
		{"WD-M6-003", "", "", "WD-M6-003-global"},
		{"WD-M1-001", "pkg\\win\\path.go", "", "WD-M1-001-pkg_win_path_go"},
		{"WD-M2-010", "a/b.c", "DoThing", "WD-M2-010-a_b_c-DoThing"},
		{"WD-M2-010", "", "DoThing", "WD-M2-010-global-DoThing"},
		{"WD-M2-010", "pkg/a.go", "(*Foo).Bar", "WD-M2-010-pkg_a_go-__Foo__Bar"},
		{"WD-M2-010", "", "pkg/Fn", "WD-M2-010-global-pkg_Fn"},
		{"WD-M1-001", "dir name/file (copy).go", "", "WD-M1-001-dir_name_file__copy__go"},
	}

	for _, tc := range cases {
		got := Identity(tc.code, tc.path, tc.symbol)
		if got != tc.want {
			t.Errorf("Identity(%q, %q, %q) = %q, want %q", tc.code, tc.path, tc.symbol, got, tc.want)
		}
		// Re-derivation must be stable.
		if again := Identity(tc.code, tc.path, tc.symbol); again != got {
			t.Errorf("Identity not stable: %q then %q", got, again)
		}
	}
}

func TestInstanceID(t *testing.T) {
	in := Instance{Code: "WD-M6-003", Path: "src/engine/loop.ts"}
	if got, want := in.ID(), "WD-M6-003-src_engine_loop_ts"; got != want {
		t.Errorf("ID() = %q, want %q", got, want)
	}
}
