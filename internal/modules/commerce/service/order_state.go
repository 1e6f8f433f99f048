package service

import "anoa.com/fandomspace/internal/entity"

// Party is the side of an order allowed to make a status change.
type Party int

const (
	PartyBuyer Party = iota + 1
	PartyArtist
)

func (p Party) String() string {
	switch p {
	case PartyBuyer:
		return "buyer"
	case PartyArtist:
		return "artist"
	}
	return "unknown"
}

type statusChange struct {
	from, to string
}

var orderTransitions = map[statusChange]Party{
	{entity.OrderPending, entity.OrderProcessed}:              PartyArtist,
	{entity.OrderProcessed, entity.OrderShipped}:              PartyArtist,
	{entity.OrderShipped, entity.OrderDelivered}:              PartyBuyer,
	{entity.OrderPending, entity.OrderRefundRequested}:        PartyBuyer,
	{entity.OrderProcessed, entity.OrderRefundRequested}:      PartyBuyer,
	{entity.OrderShipped, entity.OrderRefundRequested}:        PartyBuyer,
	{entity.OrderRefundRequested, entity.OrderRefunded}:       PartyArtist,
	{entity.OrderRefundRequested, entity.OrderRefundRejected}: PartyArtist,
}

// AllowedTransition returns the party that may move an order from one status
// to another, or false when the change is not in the lifecycle.
func AllowedTransition(from, to string) (Party, bool) {
	party, ok := orderTransitions[statusChange{from, to}]
	return party, ok
}
