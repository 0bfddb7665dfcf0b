package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusOpen))
	assert.True(t, OrderStatusOpen.CanTransition(OrderStatusPaid))
	assert.True(t, OrderStatusPaid.CanTransition(OrderStatusInProduction))
	assert.True(t, OrderStatusInProduction.CanTransition(OrderStatusShipped))
	assert.True(t, OrderStatusShipped.CanTransition(OrderStatusDelivered))

	assert.False(t, OrderStatusPending.CanTransition(OrderStatusDelivered))
	assert.False(t, OrderStatusShipped.CanTransition(OrderStatusCancelled))
	assert.False(t, OrderStatusDelivered.CanTransition(OrderStatusPending))
	assert.False(t, OrderStatusCancelled.CanTransition(OrderStatusOpen))
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, OrderStatusInProduction.Valid())
	assert.False(t, OrderStatus("unknown").Valid())
}
