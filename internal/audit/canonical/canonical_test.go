package canonical

import (
	"encoding/json"
	"testing"
)

func TestCanonicalize_KeyOrderIndependent(t *testing.T) {
	a := json.RawMessage(`{"quantity":40,"item":"gearbox","status":"planned"}`)
	b := json.RawMessage(`{"status":"planned","quantity":40,"item":"gearbox"}`)

	ca, err := Canonicalize(a)
	if err != nil {
		t.Fatalf("Canonicalize a: %v", err)
	}
	cb, err := Canonicalize(b)
	if err != nil {
		t.Fatalf("Canonicalize b: %v", err)
	}
	if string(ca) != string(cb) {
		t.Errorf("canonical forms differ:\n%s\n%s", ca, cb)
	}
	want := `{"item":"gearbox","quantity":40,"status":"planned"}`
	if string(ca) != want {
		t.Errorf("canonical = %s, want %s", ca, want)
	}
}

func TestCanonicalize_NestedKeysSorted(t *testing.T) {
	raw := json.RawMessage(`{"b":{"z":1,"a":{"y":2,"x":3}},"a":[{"q":1,"p":2}]}`)
	got, err := Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"a":[{"p":2,"q":1}],"b":{"a":{"x":3,"y":2},"z":1}}`
	if string(got) != want {
		t.Errorf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalize_ArrayOrderPreserved(t *testing.T) {
	raw := json.RawMessage(`{"steps":["cut","weld","paint"]}`)
	got, err := Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"steps":["cut","weld","paint"]}`
	if string(got) != want {
		t.Errorf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalize_NumbersVerbatim(t *testing.T) {
	// Large and high-precision numbers must not be rewritten through float64.
	raw := json.RawMessage(`{"big":9007199254740993,"price":19.9900,"exp":1e3}`)
	got, err := Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"big":9007199254740993,"exp":1e3,"price":19.9900}`
	if string(got) != want {
		t.Errorf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalize_ScalarsAndNull(t *testing.T) {
	raw := json.RawMessage(`{"deleted":true,"note":null,"tag":"a\"b"}`)
	got, err := Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"deleted":true,"note":null,"tag":"a\"b"}`
	if string(got) != want {
		t.Errorf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalize_InvalidJSON(t *testing.T) {
	if _, err := Canonicalize(json.RawMessage(`{"a":`)); err == nil {
		t.Error("want error for truncated JSON")
	}
	if _, err := Canonicalize(nil); err == nil {
		t.Error("want error for empty input")
	}
}
