package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy renders the orderings whose field is in `allowed` as an SQL ORDER BY list.
// Unknown fields are dropped; `fallback` is used when nothing is left.
func OrderBy(ords []DBOrdering, allowed map[string]bool, fallback string) string {
	parts := make([]string, 0, len(ords))
	for _, ord := range ords {
		if allowed[ord.Field] {
			parts = append(parts, ord.String())
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}
