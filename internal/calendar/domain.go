package calendar

import "fmt"

// Domain scopes one engine run: which sessions exist and which instruments
// are in the universe. Terms may optionally be pinned to a domain by name;
// unpinned terms run on whatever domain the pipeline is executed against.
type Domain struct {
	// Name identifies the domain, e.g. "US_EQUITIES". Empty means generic.
	Name string
	// Calendar supplies the ordered trading sessions.
	Calendar *Calendar
	// Assets is the instrument universe, in a fixed documented order that
	// also fixes output column order and row order within a session.
	Assets []string
}

// NewDomain creates a domain and validates that the universe is non-empty
// and free of duplicates.
func NewDomain(name string, cal *Calendar, assets []string) (*Domain, error) {
	if cal == nil {
		return nil, fmt.Errorf("domain %q: nil calendar", name)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("domain %q: empty instrument universe", name)
	}
	seen := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		if _, dup := seen[a]; dup {
			return nil, fmt.Errorf("domain %q: duplicate instrument %q", name, a)
		}
		seen[a] = struct{}{}
	}
	return &Domain{Name: name, Calendar: cal, Assets: assets}, nil
}

// AssetIndex returns the column position of the given instrument.
func (d *Domain) AssetIndex(asset string) (int, error) {
	for i, a := range d.Assets {
		if a == asset {
			return i, nil
		}
	}
	return 0, fmt.Errorf("domain %q: unknown instrument %q", d.Name, asset)
}
