package normalize

import "testing"

func TestEmail(t *testing.T) {
	in := "  John.DOE@Example.COM  "
	want := "john.doe@example.com"
	got := Email(in)
	if got != want {
		t.Fatalf("Normalize.Email(%q) = %q, want %q", in, got, want)
	}
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	ab := PairKey("alice", "bob")
	ba := PairKey(" bob ", "alice")
	if ab != ba {
		t.Fatalf("PairKey not symmetric: %q vs %q", ab, ba)
	}
	if ab != "alice_bob" {
		t.Fatalf("unexpected pair key %q", ab)
	}
}

func TestValidID(t *testing.T) {
	cases := map[string]bool{
		"64b7f0c2a1":   true,
		"":             false,
		"user.name":    false,
		"$where":       false,
		"has space":    false,
		"plain-id_123": true,
	}
	for in, want := range cases {
		if got := ValidID(in); got != want {
			t.Fatalf("ValidID(%q) = %v, want %v", in, got, want)
		}
	}
}
