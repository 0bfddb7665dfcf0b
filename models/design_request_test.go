package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDesignStatusApprovedUnreachableFromPending(t *testing.T) {
	assert.False(t, DesignStatusPending.CanTransition(DesignStatusApproved),
		"a design must be reviewed before it can be approved")
}

func TestDesignStatusApprovedReachableFromReviewStates(t *testing.T) {
	for _, from := range []DesignStatus{
		DesignStatusInReview,
		DesignStatusRendering,
		DesignStatusReady,
		DesignStatusChangesRequested,
	} {
		assert.True(t, from.CanTransition(DesignStatusApproved), "from %s", from)
	}
}

func TestDesignStatusTerminalStates(t *testing.T) {
	terminal := []DesignStatus{DesignStatusDelivered, DesignStatusRejected, DesignStatusCancelled}
	for _, status := range terminal {
		assert.True(t, status.Terminal(), "%s should be terminal", status)
		for _, to := range []DesignStatus{
			DesignStatusPending, DesignStatusInReview, DesignStatusRendering,
			DesignStatusReady, DesignStatusApproved, DesignStatusChangesRequested,
			DesignStatusDesignReady, DesignStatusShipped, DesignStatusDelivered,
		} {
			assert.False(t, status.CanTransition(to), "%s -> %s must be illegal", status, to)
		}
	}
}

func TestDesignStatusProductionChain(t *testing.T) {
	assert.True(t, DesignStatusApproved.CanTransition(DesignStatusDesignReady))
	assert.True(t, DesignStatusDesignReady.CanTransition(DesignStatusShipped))
	assert.True(t, DesignStatusShipped.CanTransition(DesignStatusDelivered))

	// Both revert paths exist.
	assert.True(t, DesignStatusApproved.CanTransition(DesignStatusReady))
	assert.True(t, DesignStatusDesignReady.CanTransition(DesignStatusApproved))

	// No skipping straight to shipment.
	assert.False(t, DesignStatusApproved.CanTransition(DesignStatusShipped))
}

func TestDesignStatusReviewable(t *testing.T) {
	assert.True(t, DesignStatusPending.Reviewable())
	assert.True(t, DesignStatusChangesRequested.Reviewable())
	assert.False(t, DesignStatusApproved.Reviewable())
	assert.False(t, DesignStatusDesignReady.Reviewable())
	assert.False(t, DesignStatusDelivered.Reviewable())
}

func TestDesignRequestHasMockups(t *testing.T) {
	key := "design-requests/1/mockups/1.png"

	assert.False(t, (&DesignRequest{}).HasMockups())
	assert.True(t, (&DesignRequest{MockupKeys: []string{key}}).HasMockups())
	assert.True(t, (&DesignRequest{HomeMockupKey: &key}).HasMockups())
	assert.True(t, (&DesignRequest{AwayMockupKey: &key}).HasMockups())
}
