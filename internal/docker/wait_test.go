package docker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitTimedOut(t *testing.T) {
	t.Run("deadline expired", func(t *testing.T) {
		parent := context.Background()
		timeoutCtx, cancel := context.WithTimeout(parent, time.Millisecond)
		defer cancel()
		<-timeoutCtx.Done()
		assert.True(t, waitTimedOut(timeoutCtx, parent))
	})

	t.Run("daemon error before deadline", func(t *testing.T) {
		parent := context.Background()
		timeoutCtx, cancel := context.WithTimeout(parent, time.Hour)
		defer cancel()
		assert.False(t, waitTimedOut(timeoutCtx, parent))
	})

	t.Run("parent canceled", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(context.Background())
		timeoutCtx, cancel := context.WithTimeout(parent, time.Hour)
		defer cancel()
		cancelParent()
		assert.False(t, waitTimedOut(timeoutCtx, parent))
	})
}
