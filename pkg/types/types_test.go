package types

import (
	"testing"
	"time"
)

func TestMetadataScanKeepsNestedShapes(t *testing.T) {
	var m Metadata
	if err := m.Scan([]byte(`{"agency":"CETESB","zones":["A",2],"flags":{"urgent":true}}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if m["agency"] != "CETESB" {
		t.Fatalf("unexpected agency %v", m["agency"])
	}
	zones, ok := m["zones"].([]any)
	if !ok || len(zones) != 2 || zones[1] != float64(2) {
		t.Fatalf("unexpected zones %#v", m["zones"])
	}
	flags, ok := m["flags"].(map[string]any)
	if !ok || flags["urgent"] != true {
		t.Fatalf("unexpected flags %#v", m["flags"])
	}
}

func TestMetadataNilValueIsEmptyObject(t *testing.T) {
	var m Metadata
	v, err := m.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != "{}" {
		t.Fatalf("expected empty object, got %s", v)
	}
	if err := m.Scan(nil); err != nil || m == nil || len(m) != 0 {
		t.Fatalf("expected empty map on nil scan, got %#v %v", m, err)
	}
	if err := m.Scan(42); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestMetadataCloneIsDeep(t *testing.T) {
	orig := Metadata{"address": map[string]any{"city": "Campinas"}, "tags": []any{"a"}}
	clone := orig.Clone()
	clone["address"].(map[string]any)["city"] = "Santos"
	clone["tags"].([]any)[0] = "b"

	if orig["address"].(map[string]any)["city"] != "Campinas" {
		t.Fatalf("clone aliased nested map")
	}
	if orig["tags"].([]any)[0] != "a" {
		t.Fatalf("clone aliased nested list")
	}
}

func TestDaySetNormalize(t *testing.T) {
	got := DaySet{7, 30, 1, 7, -2, 30}.Normalize()
	want := DaySet{30, 7, 1}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestTimelineLatest(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tl := Timeline{
		{Status: "protocolled", OccurredAt: base},
		{Status: "under_review", OccurredAt: base.AddDate(0, 1, 0)},
		{Status: "requirements_issued", OccurredAt: base.AddDate(0, 0, 10)},
	}
	latest, ok := tl.Latest()
	if !ok || latest.Status != "under_review" {
		t.Fatalf("unexpected latest %+v", latest)
	}
	if _, ok := (Timeline{}).Latest(); ok {
		t.Fatalf("empty timeline has no latest entry")
	}
}
