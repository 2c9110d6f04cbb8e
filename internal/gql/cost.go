package gql

type ThrottleStatus struct {
	MaximumAvailable   float64 `json:"maximumAvailable"`
	CurrentlyAvailable float64 `json:"currentlyAvailable"`
	RestoreRate        float64 `json:"restoreRate"`
}

type queryCost struct {
	RequestedQueryCost float64        `json:"requestedQueryCost"`
	ActualQueryCost    *float64       `json:"actualQueryCost"`
	ThrottleStatus     ThrottleStatus `json:"throttleStatus"`
}

// Budget is process-lifetime cost telemetry. It is reported, never consulted.
type Budget struct {
	Calls         int            `json:"calls"`
	Throttled     int            `json:"throttled"`
	RequestedCost float64        `json:"requested_cost"`
	ActualCost    float64        `json:"actual_cost"`
	Last          ThrottleStatus `json:"last"`
}

func (b *Budget) record(c *queryCost) {
	b.Calls++
	if c == nil {
		return
	}
	b.RequestedCost += c.RequestedQueryCost
	if c.ActualQueryCost != nil {
		b.ActualCost += *c.ActualQueryCost
	}
	b.Last = c.ThrottleStatus
}
