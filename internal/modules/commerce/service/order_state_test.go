package service

import (
	"testing"

	"anoa.com/fandomspace/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestAllowedTransition(t *testing.T) {
	statuses := []string{
		entity.OrderPending, entity.OrderProcessed, entity.OrderShipped, entity.OrderDelivered,
		entity.OrderRefundRequested, entity.OrderRefunded, entity.OrderRefundRejected,
	}
	allowed := map[[2]string]Party{
		{entity.OrderPending, entity.OrderProcessed}:              PartyArtist,
		{entity.OrderProcessed, entity.OrderShipped}:              PartyArtist,
		{entity.OrderShipped, entity.OrderDelivered}:              PartyBuyer,
		{entity.OrderPending, entity.OrderRefundRequested}:        PartyBuyer,
		{entity.OrderProcessed, entity.OrderRefundRequested}:      PartyBuyer,
		{entity.OrderShipped, entity.OrderRefundRequested}:        PartyBuyer,
		{entity.OrderRefundRequested, entity.OrderRefunded}:       PartyArtist,
		{entity.OrderRefundRequested, entity.OrderRefundRejected}: PartyArtist,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			party, ok := AllowedTransition(from, to)
			want, listed := allowed[[2]string{from, to}]
			assert.Equal(t, listed, ok, "%s -> %s", from, to)
			if listed {
				assert.Equal(t, want, party, "%s -> %s", from, to)
			}
		}
	}
}

func TestFinalStatusesHaveNoWayOut(t *testing.T) {
	for _, status := range []string{entity.OrderDelivered, entity.OrderRefunded, entity.OrderRefundRejected} {
		o := entity.Order{Status: status}
		assert.True(t, o.IsFinal())
		for change := range orderTransitions {
			assert.NotEqual(t, status, change.from)
		}
	}
}

func TestTaxRoundsHalfUp(t *testing.T) {
	opts := Options{TaxBps: 1100}
	assert.Equal(t, int64(5500), opts.Tax(50000))
	assert.Equal(t, int64(0), opts.Tax(0))
	assert.Equal(t, int64(1), opts.Tax(5)) // 0.55
	assert.Equal(t, int64(0), opts.Tax(4)) // 0.44
	assert.Equal(t, int64(11), opts.Tax(100))
}
