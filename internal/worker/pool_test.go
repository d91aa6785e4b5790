package worker

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_RunsAndDrains(t *testing.T) {
	p := NewPool(3, 64)
	var n atomic.Int32
	for i := 0; i < 50; i++ {
		assert.True(t, p.TrySubmit(func() { n.Add(1) }))
	}
	p.Stop()
	assert.EqualValues(t, 50, n.Load())
}

func TestPool_RejectsWhenFullOrStopped(t *testing.T) {
	block := make(chan struct{})
	p := NewPool(1, 1)
	started := make(chan struct{})
	assert.True(t, p.TrySubmit(func() { close(started); <-block }))
	<-started
	assert.True(t, p.TrySubmit(func() {}))
	assert.False(t, p.TrySubmit(func() {}), "queue full")

	close(block)
	p.Stop()
	p.Stop()
	assert.False(t, p.TrySubmit(func() {}), "stopped")
}
