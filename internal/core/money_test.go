package core

import "testing"

func TestParseAmount(t *testing.T) {
	ok := map[string]string{
		"12.34":   "12.34",
		"12,34":   "12.34",
		" 5 ":     "5",
		"0.10":    "0.1",
		"0.001":   "0.001",
		"1000000": "1000000",
		"12.3456": "12.3456",
	}
	for in, want := range ok {
		got, err := ParseAmount(in)
		if err != nil {
			t.Fatalf("%q unexpected err: %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("%q got %s want %s", in, got, want)
		}
	}
	bad := []string{"", "0", "0.00", "-1", "+1", "abc", "1.2.3", "1e3"}
	for _, in := range bad {
		if _, err := ParseAmount(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
}

func TestDisplayAmount(t *testing.T) {
	d, _ := ParseAmount("0.30")
	if DisplayAmount(d) != 0.3 {
		t.Fatalf("got %v", DisplayAmount(d))
	}
}
