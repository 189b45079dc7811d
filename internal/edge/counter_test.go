package edge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterModes(t *testing.T) {
	tests := []struct {
		name            string
		rising, falling EdgeMode
		want            int32
	}{
		{"rising only", EdgeIncrement, EdgeDisable, 3},
		{"both edges", EdgeIncrement, EdgeIncrement, 6},
		{"up and down", EdgeIncrement, EdgeDecrement, 0},
		{"falling decrements", EdgeDisable, EdgeDecrement, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCounter(tt.rising, tt.falling, 0)
			for i := uint32(0); i < 3; i++ {
				c.HandleEdge(true, i*100)
				c.HandleEdge(false, i*100+50)
			}
			assert.Equal(t, tt.want, c.Count())
		})
	}
}

func TestCounterMinPulseWidth(t *testing.T) {
	c := NewCounter(EdgeIncrement, EdgeDisable, 13*time.Microsecond)

	c.HandleEdge(true, 1000) // first edge always counts
	c.HandleEdge(false, 1005)
	c.HandleEdge(true, 1010) // 5µs after the last edge: glitch
	c.HandleEdge(false, 1100)
	c.HandleEdge(true, 1200)

	assert.Equal(t, int32(2), c.Count())
}

func TestCounterReadDelta(t *testing.T) {
	c := NewCounter(EdgeIncrement, EdgeDisable, 0)
	for i := uint32(0); i < 4; i++ {
		c.HandleEdge(true, i*10)
		c.HandleEdge(false, i*10+5)
	}
	assert.Equal(t, int32(4), c.ReadDelta())
	assert.Equal(t, int32(0), c.ReadDelta())

	c.HandleEdge(true, 100)
	assert.Equal(t, int32(1), c.ReadDelta())
	assert.Equal(t, int32(5), c.Count(), "reading does not reset the running count")
}

func TestParseEdgeMode(t *testing.T) {
	m, err := ParseEdgeMode("decrement", EdgeIncrement)
	require.NoError(t, err)
	assert.Equal(t, EdgeDecrement, m)

	m, err = ParseEdgeMode("", EdgeIncrement)
	require.NoError(t, err)
	assert.Equal(t, EdgeIncrement, m)

	_, err = ParseEdgeMode("sideways", EdgeDisable)
	assert.Error(t, err)
	assert.Equal(t, "DECREMENT", EdgeDecrement.String())
}
