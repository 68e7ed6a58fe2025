package main

import "testing"

func TestIntArg(t *testing.T) {
	if n, err := intArg([]string{"down"}, 1); err != nil || n != 1 {
		t.Fatalf("expected default 1, got %d %v", n, err)
	}
	if n, err := intArg([]string{"down", "3"}, 1); err != nil || n != 3 {
		t.Fatalf("expected 3, got %d %v", n, err)
	}
	if _, err := intArg([]string{"force"}, 0); err == nil {
		t.Fatal("force without a version should fail")
	}
	if _, err := intArg([]string{"force", "x"}, 0); err == nil {
		t.Fatal("non-numeric version should fail")
	}
}
