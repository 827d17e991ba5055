package idgen

import (
	"sort"
	"testing"
	"time"
)

func TestUUIDGenerator(t *testing.T) {
	g := NewUUIDGenerator()

	id, err := g.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ok, reason := g.Validate(id); !ok {
		t.Fatalf("generated id %q invalid: %s", id, reason)
	}
	if ok, _ := g.Validate("not-a-uuid"); ok {
		t.Fatal("expected invalid uuid to be rejected")
	}
}

func TestULIDGeneratorIsMonotonic(t *testing.T) {
	g := NewULIDGenerator()

	ids := make([]string, 1000)
	for i := range ids {
		id, err := g.Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if ok, reason := g.Validate(id); !ok {
			t.Fatalf("generated id %q invalid: %s", id, reason)
		}
		ids[i] = id
	}

	if !sort.StringsAreSorted(ids) {
		t.Fatal("expected ulids to sort in generation order")
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			t.Fatalf("duplicate ulid %q", ids[i])
		}
	}
}

func TestULIDGeneratorTime(t *testing.T) {
	g := NewULIDGenerator()
	before := time.Now().Add(-time.Second)

	id, _ := g.Generate()
	ts, err := g.Time(id)
	if err != nil {
		t.Fatalf("time: %v", err)
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Fatalf("unexpected ulid time %s", ts)
	}

	if ok, _ := g.Validate("short"); ok {
		t.Fatal("expected short id to be rejected")
	}
}
