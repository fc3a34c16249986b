package infra

import (
	"bytes"
	"testing"

	"github.com/bytedance/sonic"
)

func TestMarshalCatalog_SortedKeysFixedIndent(t *testing.T) {
	data := map[string]any{
		"version":   "1.0",
		"mod_count": int64(1),
		"mods": []any{
			map[string]any{"name": "A", "downloads": int64(6)},
		},
	}

	want := `{
  "mod_count": 1,
  "mods": [
    {
      "downloads": 6,
      "name": "A"
    }
  ],
  "version": "1.0"
}
`
	got, err := MarshalCatalog(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != want {
		t.Fatalf("output mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestMarshalCatalog_Deterministic(t *testing.T) {
	raw := []byte(`{"b": 2, "a": 1, "mods": [{"z": true, "name": "x"}]}`)
	var data map[string]any
	if err := sonic.Unmarshal(raw, &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	first, err := MarshalCatalog(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := MarshalCatalog(data)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d differs:\n%q\n%q", i, first, again)
		}
	}
	if first[len(first)-1] != '\n' {
		t.Fatalf("expected trailing newline")
	}
}
