package catalog

import "testing"

// TestDefaultCatalogLoads verifies the embedded catalog parses without duplicate keys.
func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	if len(c.All()) < 10 {
		t.Errorf("catalog has %d entries, want at least 10", len(c.All()))
	}
}

// TestLookupNormalizes verifies ids, display names and aliases resolve regardless of
// case, spacing, underscores or hyphens.
func TestLookupNormalizes(t *testing.T) {
	c := Default()
	tests := []struct {
		input  string
		wantID string
	}{
		{"bench_press", "bench_press"},
		{"Bench Press", "bench_press"},
		{"  BENCH   press ", "bench_press"},
		{"pull-up", "pull_up"},
		{"Hack Squats", "hack_squat"},
		{"Hyperextensions on Roman Chair", "hyperextension"},
		{"OHP", "overhead_press"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ex, ok := c.Lookup(tt.input)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.input)
			}
			if ex.ID != tt.wantID {
				t.Errorf("Lookup(%q) = %q, want %q", tt.input, ex.ID, tt.wantID)
			}
		})
	}
}

// TestLookupUnknown verifies unknown names are reported as missing.
func TestLookupUnknown(t *testing.T) {
	if _, ok := Default().Lookup("underwater basket weaving"); ok {
		t.Error("unexpected match for unknown exercise")
	}
	if _, ok := Default().Lookup(""); ok {
		t.Error("unexpected match for empty name")
	}
}

// TestParseRejectsDuplicates verifies two entries cannot claim the same alias.
func TestParseRejectsDuplicates(t *testing.T) {
	data := []byte(`
- id: squat
  name: Squat
- id: back_squat
  name: Back Squat
  aliases: [squat]
`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

// TestParseRequiresID verifies entries without an id are rejected.
func TestParseRequiresID(t *testing.T) {
	if _, err := Parse([]byte(`- name: Nameless`)); err == nil {
		t.Fatal("expected error for missing id")
	}
}
