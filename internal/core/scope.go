package core

// Scoped is implemented by records that belong to a single broker.
type Scoped interface {
	OwnerBrokerID() int64
}

// FilterByScope returns the subset of items the actor may see, in input order.
// A non-privileged actor without a broker link sees nothing.
func FilterByScope[T Scoped](items []T, a Actor) []T {
	if a.CanViewAllData() {
		return items
	}
	out := make([]T, 0, len(items))
	if a.BrokerID == nil || !a.Authenticated() {
		return out
	}
	for _, it := range items {
		if it.OwnerBrokerID() == *a.BrokerID {
			out = append(out, it)
		}
	}
	return out
}

// scopeBrokerID is the broker filter to push down to a repository list query.
// ok is false when the actor can see nothing at all.
func scopeBrokerID(a Actor) (brokerID *int64, ok bool) {
	if a.CanViewAllData() {
		return nil, true
	}
	if a.BrokerID == nil || !a.Authenticated() {
		return nil, false
	}
	id := *a.BrokerID
	return &id, true
}
