package meta

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGetClone(t *testing.T) {
	m := New(map[string]string{"source": "import"})
	if v, ok := m.Get("source"); !ok || v != "import" {
		t.Fatalf("get failed")
	}
	cloned := m.Clone()
	delete(m, "source")
	if v, ok := cloned.Get("source"); !ok || v != "import" {
		t.Fatalf("clone should be independent: %+v", cloned)
	}
}

func TestValidationLimits(t *testing.T) {
	pairs := make(map[string]string)
	for i := 0; i < MaxPairs+1; i++ {
		pairs["k"+strings.Repeat("a", i+1)] = "v"
	}
	if err := New(pairs).Validate(); err == nil {
		t.Fatalf("expected too many pairs")
	}
	if err := New(map[string]string{strings.Repeat("k", MaxKeyLen+1): "v"}).Validate(); err == nil {
		t.Fatalf("expected key too long")
	}
	if err := New(map[string]string{"k": strings.Repeat("v", MaxValLen+1)}).Validate(); err == nil {
		t.Fatalf("expected value too long")
	}
}

func TestStableJSONRoundtrip(t *testing.T) {
	m := New(map[string]string{"external_id": "42", "bank": "monzo"})
	b, _ := m.MarshalStableJSON()
	if string(b) != `{"bank":"monzo","external_id":"42"}` {
		t.Fatalf("unexpected stable json: %s", string(b))
	}
	var back Metadata
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := back.Validate(); err != nil {
		t.Fatalf("validate roundtrip: %v", err)
	}
}
