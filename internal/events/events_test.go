package events

import (
	"strings"
	"testing"
)

func TestClip(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a long detail string", 10, "a long ..."},
		{"abc", 2, "ab"},
	}
	for _, c := range cases {
		if got := Clip(c.in, c.n); got != c.want {
			t.Errorf("Clip(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestClipBounded(t *testing.T) {
	long := strings.Repeat("x", maxDetail*2)
	if got := Clip(long, maxDetail); len(got) != maxDetail {
		t.Errorf("len = %d, want %d", len(got), maxDetail)
	}
}

func TestSchemaCoversAllTables(t *testing.T) {
	for _, table := range []string{"runs", "run_events", "attempt_records"} {
		if !strings.Contains(schema, table) {
			t.Errorf("schema missing table %s", table)
		}
	}
}
