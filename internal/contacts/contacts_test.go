package contacts

import (
	"testing"

	"homeline/pkg/store"
)

func TestAddAndFind(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st)

	if _, err := svc.Add("u-alex", "Dana Smith", "555-0100"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add("u-alex", "Lee", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add("u-mom", "Dana Jones", "555-0101"); err != nil {
		t.Fatalf("add: %v", err)
	}

	found, err := svc.Find("u-alex", "dana")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Dana Smith" {
		t.Fatalf("search should be scoped to the owner: %+v", found)
	}

	all, err := svc.Find("u-alex", "")
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("empty query should return all contacts, got %d", len(all))
	}

	none, err := svc.Find("u-alex", "zed")
	if err != nil {
		t.Fatalf("find miss: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %+v", none)
	}
}

func TestAddRequiresName(t *testing.T) {
	svc := New(store.NewMemoryStore())
	if _, err := svc.Add("u-alex", "   ", "555-0100"); err == nil {
		t.Fatal("blank name should be rejected")
	}
}
