package member

import "testing"

func TestKeyEncodeDeterministic(t *testing.T) {
	a := Key{Server: "S1", User: "U1"}
	b := Key{User: "U1", Server: "S1"}

	if a.Encode() != a.Encode() {
		t.Fatalf("encoding is not stable")
	}
	if a.Encode() != b.Encode() {
		t.Fatalf("expected %s got %s", a.Encode(), b.Encode())
	}
	if want := `{"server":"S1","user":"U1"}`; a.Encode() != want {
		t.Fatalf("expected %s got %s", want, a.Encode())
	}
}

func TestKeyEncodeDistinct(t *testing.T) {
	keys := []Key{
		{Server: "S1", User: "U1"},
		{Server: "U1", User: "S1"},
		{Server: "S1", User: "U2"},
		{Server: "S2", User: "U1"},
		{Server: `S1","user":"U1`, User: ""},
		{Server: "", User: ""},
	}

	seen := map[string]Key{}
	for _, k := range keys {
		encoded := k.Encode()
		if other, ok := seen[encoded]; ok {
			t.Fatalf("%v and %v both encode to %s", k, other, encoded)
		}
		seen[encoded] = k
	}
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey(`{"user":"U1","server":"S1"}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if k != (Key{Server: "S1", User: "U1"}) {
		t.Fatalf("unexpected key %v", k)
	}

	roundTrip, err := ParseKey(k.Encode())
	if err != nil || roundTrip != k {
		t.Fatalf("round trip failed: %v %v", roundTrip, err)
	}

	if _, err := ParseKey(`{"server":"S1"}`); err == nil {
		t.Fatalf("expected error for missing user")
	}
	if _, err := ParseKey(`not json`); err == nil {
		t.Fatalf("expected error for invalid input")
	}
}
