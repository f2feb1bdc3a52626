package util

import "testing"

func TestAssertPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if r != "assertion failed: nil store" {
			t.Errorf("unexpected panic value: %v", r)
		}
	}()
	Assert(false, "nil store")
}

func TestAssertHolds(t *testing.T) {
	Assert(true, "never shown")
}
