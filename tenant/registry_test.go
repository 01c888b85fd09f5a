package tenant

import "testing"

func TestStaticRegistryLookup(t *testing.T) {
	r := NewStaticRegistry([]Tenant{
		{ID: "acme", StorageLimitBytes: 100},
		{ID: "globex", StorageLimitBytes: 200},
		{ID: "acme", StorageLimitBytes: 150}, // later registration wins
	})

	got, ok := r.Lookup("acme")
	if !ok {
		t.Fatal("want acme to be registered")
	}
	if got.StorageLimitBytes != 150 {
		t.Errorf("want the later registration to win, got limit %d", got.StorageLimitBytes)
	}

	if _, ok := r.Lookup("initech"); ok {
		t.Error("an unknown tenant must not resolve")
	}
}
