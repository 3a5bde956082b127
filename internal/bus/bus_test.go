package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub(t *testing.T) {
	hub := NewHub[int]("test")

	a, unsubA := hub.Subscribe()
	b, unsubB := hub.Subscribe()
	assert.Equal(t, 2, hub.Len())

	hub.Broadcast(1)
	assert.Equal(t, 1, <-a)
	assert.Equal(t, 1, <-b)

	unsubB()
	unsubB()
	assert.Equal(t, 1, hub.Len())

	for i := 0; i < HubBuffer+5; i++ {
		hub.Broadcast(i)
	}
	assert.Len(t, a, HubBuffer)
	unsubA()
	assert.Equal(t, 0, hub.Len())
}
