package vector

import "testing"

func TestGenerateIDsIsPositional(t *testing.T) {
	ids := generateIDs("docs", 3)
	want := []string{"docs-0", "docs-1", "docs-2"}
	for i, id := range ids {
		if id != want[i] {
			t.Fatalf("expected %q, got %q", want[i], id)
		}
	}
}

func TestMetadatasToChromaPadsMissing(t *testing.T) {
	out := metadatasToChroma([]map[string]any{{"a": 1}}, 3)
	if len(out) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(out))
	}
	if out[0]["a"] != 1 {
		t.Fatalf("expected first entry preserved, got %+v", out[0])
	}
	if out[1] == nil || len(out[1]) != 0 {
		t.Fatalf("expected padded empty map, got %+v", out[1])
	}
}

func TestMetadatasToChromaPassthroughWhenExact(t *testing.T) {
	in := []map[string]any{{"a": 1}, {"b": 2}}
	out := metadatasToChroma(in, 2)
	if len(out) != 2 || out[1]["b"] != 2 {
		t.Fatalf("expected passthrough, got %+v", out)
	}
}
