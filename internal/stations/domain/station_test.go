package stations

import (
	"errors"
	"testing"
)

func TestNewRegistryKeepsCatalogOrder(t *testing.T) {
	reg, err := NewRegistry([]Station{
		{ID: "t2", Name: "Table 2", Category: CategoryTable, RatePerHour: 60},
		{ID: "t1", Name: "Table 1", Category: CategoryTable, RatePerHour: 60},
		{ID: "vip", Name: "VIP Room", Category: CategoryRoom, RatePerHour: 200},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	list := reg.List()
	if len(list) != 3 || list[0].ID != "t2" || list[2].ID != "vip" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if got := reg.ByCategory(CategoryRoom); len(got) != 1 || got[0].ID != "vip" {
		t.Fatalf("expected vip room, got %+v", got)
	}
	if _, err := reg.Get("missing"); !errors.Is(err, ErrStationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewRegistryRejectsBadStations(t *testing.T) {
	cases := map[string][]Station{
		"empty":     nil,
		"duplicate": {{ID: "a", Name: "A", Category: CategoryTable}, {ID: "a", Name: "B", Category: CategoryTable}},
		"category":  {{ID: "a", Name: "A", Category: "Z"}},
		"rate":      {{ID: "a", Name: "A", Category: CategoryConsole, RatePerHour: -1}},
	}
	for name, list := range cases {
		if _, err := NewRegistry(list); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for input, want := range map[string]Category{"A": CategoryTable, "console": CategoryConsole, " Room ": CategoryRoom} {
		got, err := ParseCategory(input)
		if err != nil || got != want {
			t.Fatalf("ParseCategory(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseCategory("bowling"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}
