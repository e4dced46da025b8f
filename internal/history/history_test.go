package history_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/robotwatch/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTruncatesToCapacity(t *testing.T) {
	s := history.NewStore()
	for i := 0; i < 15; i++ {
		s.Append("ROBOT_001", "head", history.Entry{Temperature: float64(i)})
	}

	got := s.Get("ROBOT_001", "head")
	require.Len(t, got, history.Capacity)
	assert.InDelta(t, 5.0, got[0].Temperature, 1e-9)
	assert.InDelta(t, 14.0, got[len(got)-1].Temperature, 1e-9)
}

func TestGetMissingIsEmpty(t *testing.T) {
	s := history.NewStore()
	assert.Empty(t, s.Get("ROBOT_404", "head"))
	assert.NotNil(t, s.Get("ROBOT_404", "head"))
}

func TestGetDoesNotAlias(t *testing.T) {
	s := history.NewStore()
	s.Append("ROBOT_001", "base", history.Entry{Humidity: 50})

	got := s.Get("ROBOT_001", "base")
	got[0].Humidity = 99

	assert.InDelta(t, 50.0, s.Get("ROBOT_001", "base")[0].Humidity, 1e-9)
}

func TestKeysAreIndependent(t *testing.T) {
	s := history.NewStore()
	ts := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	s.Append("ROBOT_001", "head", history.Entry{Temperature: 40, Timestamp: ts})
	s.Append("ROBOT_002", "head", history.Entry{Temperature: 70, Timestamp: ts})

	assert.Len(t, s.Get("ROBOT_001", "head"), 1)
	assert.Len(t, s.Get("ROBOT_002", "head"), 1)
	assert.Empty(t, s.Get("ROBOT_001", "torso"))
}

func TestLastAndReset(t *testing.T) {
	s := history.NewStore()
	for i := 1; i <= 4; i++ {
		s.Append("ROBOT_001", "head", history.Entry{Temperature: float64(i)})
	}

	last := s.Last("ROBOT_001", "head", 3)
	require.Len(t, last, 3)
	assert.InDelta(t, 2.0, last[0].Temperature, 1e-9)
	assert.Len(t, s.Last("ROBOT_001", "head", 10), 4)

	s.Reset()
	assert.Empty(t, s.Get("ROBOT_001", "head"))
}
