package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduler(t *testing.T) {
	s := NewScheduler()

	assert.True(t, s.Start(1))
	assert.False(t, s.Start(1), "second start is a no-op")
	assert.True(t, s.Start(2))
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Stop(1))
	assert.False(t, s.Stop(1))
	assert.False(t, s.Running(1))
	assert.True(t, s.Running(2))
	assert.Equal(t, 1, s.Len())

	assert.False(t, s.Stop(99), "stopping an unknown id is harmless")
}
