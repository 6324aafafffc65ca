package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithProviderTimeout_AddsDeadline(t *testing.T) {
	ctx, cancel := withProviderTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok, "provider calls must carry a deadline")
	remaining := time.Until(deadline)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, providerTimeout)
}

func TestWithProviderTimeout_KeepsTighterParentDeadline(t *testing.T) {
	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()

	ctx, cancel := withProviderTimeout(parent)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.LessOrEqual(t, time.Until(deadline), time.Second)
}
