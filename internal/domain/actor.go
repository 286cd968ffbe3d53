package domain

// Actor is a geopolitical entity with a canonical code and an ordered,
// case-insensitively deduplicated alias list. The first alias is the
// primary English name.
type Actor struct {
	Code    string
	Aliases []string
}
