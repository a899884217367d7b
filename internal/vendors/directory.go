// Package vendors holds the per-session vendor directory and the
// autocomplete matcher used by the account page.
package vendors

import (
	"encoding/json"
	"fmt"
	"strings"

	"paperdesk/internal/core"
)

// Directory is an immutable snapshot of the vendors visible to a session:
// the unified list plus one partition per vendor type.
type Directory struct {
	all    []core.Vendor
	byType map[core.VendorType][]core.Vendor
	byName map[string]int
}

// Duplicate describes a vendor dropped because its name was already taken.
type Duplicate struct {
	Name string
	ID   int64
}

// New builds a directory keeping the first vendor for each name
// (compared case-insensitively). Dropped vendors are returned for logging.
func New(list []core.Vendor) (*Directory, []Duplicate) {
	d := &Directory{
		all:    make([]core.Vendor, 0, len(list)),
		byType: make(map[core.VendorType][]core.Vendor, 3),
		byName: make(map[string]int, len(list)),
	}
	var dups []Duplicate
	for _, v := range list {
		key := normalize(v.Name)
		if key == "" {
			continue
		}
		if _, ok := d.byName[key]; ok {
			dups = append(dups, Duplicate{Name: v.Name, ID: v.ID})
			continue
		}
		d.byName[key] = len(d.all)
		d.all = append(d.all, v)
		for _, t := range v.Types {
			d.byType[t] = append(d.byType[t], v)
		}
	}
	return d, dups
}

// Empty returns a directory with no vendors.
func Empty() *Directory {
	d, _ := New(nil)
	return d
}

// Decode builds a directory from the JSON vendor list as returned by
// GET /api/vendors.
func Decode(data []byte) (*Directory, []Duplicate, error) {
	var list []core.Vendor
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, nil, fmt.Errorf("decode vendor directory: %w", err)
	}
	d, dups := New(list)
	return d, dups, nil
}

// Encode serialises the unified list in the same shape Decode reads.
func (d *Directory) Encode() ([]byte, error) {
	type wire struct {
		ID    int64             `json:"id"`
		Name  string            `json:"name"`
		Types []core.VendorType `json:"type"`
	}
	out := make([]wire, 0, len(d.all))
	for _, v := range d.all {
		out = append(out, wire{ID: v.ID, Name: v.Name, Types: v.Types})
	}
	return json.Marshal(out)
}

// All returns the unified list in backend order.
func (d *Directory) All() []core.Vendor {
	return append([]core.Vendor(nil), d.all...)
}

// OfType returns the partition for one vendor type.
func (d *Directory) OfType(t core.VendorType) []core.Vendor {
	return append([]core.Vendor(nil), d.byType[t]...)
}

func (d *Directory) Len() int {
	return len(d.all)
}

// Suggest returns every vendor whose name contains query, ignoring case,
// in directory order. A blank query yields nothing.
func (d *Directory) Suggest(query string) []core.Vendor {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	q := strings.ToLower(query)
	var out []core.Vendor
	for _, v := range d.all {
		if strings.Contains(strings.ToLower(v.Name), q) {
			out = append(out, v)
		}
	}
	return out
}

// Lookup finds the vendor whose name equals text exactly, ignoring case
// and surrounding whitespace. The stored vendor is returned unchanged.
func (d *Directory) Lookup(text string) (core.Vendor, bool) {
	key := normalize(text)
	if key == "" {
		return core.Vendor{}, false
	}
	i, ok := d.byName[key]
	if !ok {
		return core.Vendor{}, false
	}
	return d.all[i], true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
