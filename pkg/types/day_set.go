package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// DaySet is an ordered set of non-negative day offsets (reminder lead days),
// persisted as a jsonb array. Normalize sorts descending and drops duplicates.
type DaySet []int

// Normalize returns a sorted (largest first) copy without duplicates or negatives.
func (d DaySet) Normalize() DaySet {
	seen := make(map[int]struct{}, len(d))
	out := make(DaySet, 0, len(d))
	for _, v := range d {
		if v < 0 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Value implements driver.Valuer.
func (d DaySet) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(d))
	if err != nil {
		return nil, fmt.Errorf("day set: marshal: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *DaySet) Scan(value any) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("day set: %w", err)
	}
	if len(raw) == 0 {
		*d = DaySet{}
		return nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return fmt.Errorf("day set: unmarshal: %w", err)
	}
	*d = days
	return nil
}
