package parser

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	for _, name := range []string{"alerts", "json"} {
		p, err := New(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if p == nil {
			t.Fatalf("%s: nil parser", name)
		}
	}
	if _, err := New("unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}
