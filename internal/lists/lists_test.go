package lists

import (
	"testing"
	"time"

	"homeline/internal/util"
	"homeline/pkg/domain"
	"homeline/pkg/store"
)

func newList(t *testing.T, st *store.MemoryStore, ownerID, name, typ string) domain.List {
	t.Helper()
	l := domain.List{
		ID:        util.NewID(),
		OwnerID:   ownerID,
		Name:      name,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.SaveList(l); err != nil {
		t.Fatalf("save list: %v", err)
	}
	return l
}

func TestResolveListDefaultLazyCreate(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st)

	list, ok, err := svc.ResolveList("u-alex", "")
	if err != nil || !ok {
		t.Fatalf("resolve default: ok=%v err=%v", ok, err)
	}
	if list.Type != "grocery" || list.Name != "Grocery" {
		t.Fatalf("unexpected default list: %+v", list)
	}

	// A second resolve finds the same list instead of creating another.
	again, ok, err := svc.ResolveList("u-alex", "")
	if err != nil || !ok {
		t.Fatalf("resolve again: ok=%v err=%v", ok, err)
	}
	if again.ID != list.ID {
		t.Fatalf("default list recreated: %s vs %s", again.ID, list.ID)
	}
	owned, err := st.ListsByOwner("u-alex")
	if err != nil {
		t.Fatalf("lists by owner: %v", err)
	}
	if len(owned) != 1 {
		t.Fatalf("expected 1 list, got %d", len(owned))
	}
}

func TestResolveListByNameAndType(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st)

	hw := newList(t, st, "u-alex", "Hardware Store", "errands")
	newList(t, st, "u-alex", "Holiday Gifts", "shopping")

	list, ok, err := svc.ResolveList("u-alex", "hardware")
	if err != nil || !ok {
		t.Fatalf("resolve by name: ok=%v err=%v", ok, err)
	}
	if list.ID != hw.ID {
		t.Fatalf("wrong list: got %q", list.Name)
	}

	list, ok, err = svc.ResolveList("u-alex", "ERRANDS")
	if err != nil || !ok {
		t.Fatalf("resolve by type: ok=%v err=%v", ok, err)
	}
	if list.ID != hw.ID {
		t.Fatalf("wrong list by type: got %q", list.Name)
	}

	_, ok, err = svc.ResolveList("u-alex", "nonexistent")
	if err != nil {
		t.Fatalf("resolve miss: %v", err)
	}
	if ok {
		t.Fatal("expected no match")
	}
}

func TestResolveListOwnedBeforeShared(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st)

	// Mom's grocery list is shared with Alex, who also owns one of the
	// same name. Alex's own list wins.
	moms := newList(t, st, "u-mom", "Grocery", "grocery")
	if err := svc.Share(moms, "u-alex", true); err != nil {
		t.Fatalf("share: %v", err)
	}
	own := newList(t, st, "u-alex", "Grocery", "grocery")

	list, ok, err := svc.ResolveList("u-alex", "grocery")
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if list.ID != own.ID {
		t.Fatal("owned list should shadow the shared one")
	}

	// Without an owned match the shared list is found.
	shared, ok, err := svc.ResolveList("u-dad", "grocery")
	if err != nil {
		t.Fatalf("resolve for dad: %v", err)
	}
	if ok {
		t.Fatalf("dad has no access path, got %q", shared.Name)
	}
}

func TestHasAccess(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st)

	list := newList(t, st, "u-mom", "Grocery", "grocery")
	if err := svc.Share(list, "u-alex", false); err != nil {
		t.Fatalf("share: %v", err)
	}

	if ok, _ := svc.HasAccess(list, "u-mom", true); !ok {
		t.Fatal("owner should always have edit access")
	}
	if ok, _ := svc.HasAccess(list, "u-alex", false); !ok {
		t.Fatal("shared user should have read access")
	}
	if ok, _ := svc.HasAccess(list, "u-alex", true); ok {
		t.Fatal("read-only share must not permit edits")
	}
	if ok, _ := svc.HasAccess(list, "u-dad", false); ok {
		t.Fatal("unshared user should have no access")
	}

	// Re-sharing with edit upgrades the existing share.
	if err := svc.Share(list, "u-alex", true); err != nil {
		t.Fatalf("reshare: %v", err)
	}
	if ok, _ := svc.HasAccess(list, "u-alex", true); !ok {
		t.Fatal("upgraded share should permit edits")
	}
}

func TestShareWithOwnerIsNoOp(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st)

	list := newList(t, st, "u-mom", "Grocery", "grocery")
	if err := svc.Share(list, "u-mom", true); err != nil {
		t.Fatalf("share with owner: %v", err)
	}
	if _, ok, _ := st.GetListShare(list.ID, "u-mom"); ok {
		t.Fatal("owner must not get a share row")
	}
}

func TestAddRemoveCompleteItems(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st)

	list := newList(t, st, "u-alex", "Grocery", "grocery")
	if _, err := svc.AddItem(list, "u-alex", "whole milk", "2"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.AddItem(list, "u-alex", "oat milk", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.AddItem(list, "u-alex", "bread", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	count, err := svc.CompleteItems(list, "bread")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 completed, got %d", count)
	}
	// Already-completed items are not counted again.
	count, err = svc.CompleteItems(list, "bread")
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 on repeat, got %d", count)
	}

	count, err = svc.RemoveItems(list, "MILK")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if count != 2 {
		t.Fatalf("substring match should remove both milks, got %d", count)
	}
	count, err = svc.RemoveItems(list, "milk")
	if err != nil {
		t.Fatalf("remove again: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 on repeat, got %d", count)
	}

	items, err := svc.Items(list)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 || items[0].Content != "bread" {
		t.Fatalf("unexpected remaining items: %+v", items)
	}
	if !items[0].IsCompleted || items[0].CompletedAt == nil {
		t.Fatal("bread should be completed with a timestamp")
	}
}
