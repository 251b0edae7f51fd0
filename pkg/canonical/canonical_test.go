package canonical

import (
	"strings"
	"testing"
)

func TestMarshal_Sorting(t *testing.T) {
	input := map[string]interface{}{
		"c": 3,
		"a": 1,
		"b": 2,
	}

	expected := `{"a":1,"b":2,"c":3}`

	b, err := Marshal(input)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if string(b) != expected {
		t.Errorf("Expected %s, got %s", expected, string(b))
	}
}

func TestMarshal_StructTags(t *testing.T) {
	type rec struct {
		Zed   string `json:"zed"`
		Alpha int    `json:"alpha"`
	}

	b, err := Marshal(rec{Zed: "z", Alpha: 1})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"alpha":1,"zed":"z"}`
	if string(b) != expected {
		t.Errorf("Expected %s, got %s", expected, string(b))
	}
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	input := map[string]string{
		"cmp": "a < b && b > c",
	}

	b, err := Marshal(input)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if strings.Contains(string(b), `\u003c`) || strings.Contains(string(b), `\u0026`) {
		t.Errorf("output contains HTML escapes: %s", string(b))
	}
	if !strings.Contains(string(b), "a < b && b > c") {
		t.Errorf("comparison text did not survive verbatim: %s", string(b))
	}
}

func TestHash_KeyOrderIndependent(t *testing.T) {
	h1, err := Hash(map[string]interface{}{"a": 1, "b": "x"})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	h2, err := Hash(map[string]interface{}{"b": "x", "a": 1})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if h1 != h2 {
		t.Errorf("hashes differ for equal values: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestTransform_NormalizesEscapingAndWhitespace(t *testing.T) {
	variants := [][]byte{
		[]byte(`{"op": "<", "n": 1.0}`),
		[]byte("{\"n\":1,\n  \"op\":\"<\"}"),
	}

	first, err := Transform(variants[0])
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	second, err := Transform(variants[1])
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("escaping variants did not collapse: %s vs %s", first, second)
	}

	if _, err := Transform([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNFC_CollapsesEquivalentSpellings(t *testing.T) {
	// "é" precomposed vs "e" + combining acute
	composed := "café"
	decomposed := "café"

	if composed == decomposed {
		t.Fatal("test inputs should differ byte-wise")
	}
	if NFC(composed) != NFC(decomposed) {
		t.Errorf("NFC did not collapse equivalent spellings")
	}
}
