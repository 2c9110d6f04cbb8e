package dto

import "time"

// ZeroOnHandInput sets on-hand to zero for every (item, location) pair.
type ZeroOnHandInput struct {
	ItemIDs     []string
	LocationIDs []string
	Reference   string
}

type ZeroResult struct {
	Items     int
	Locations int
	Pairs     int
	Reference string
}

// ReferenceURI builds the reference document token attached to a stock change.
func ReferenceURI(now time.Time) string {
	return "logistics://catalog-gate/compliance/" + now.UTC().Format(time.RFC3339)
}
