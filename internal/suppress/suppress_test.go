package suppress_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/robotwatch/internal/clock"
	"codeberg.org/mutker/robotwatch/internal/suppress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func TestPowerOffExpires(t *testing.T) {
	f := clock.NewFake(epoch)
	s := suppress.New(f)

	var expired []string
	s.OnExpire(func(id string) {
		// The hook sees the robot as already powered on.
		assert.False(t, s.IsSuppressed(id))
		expired = append(expired, id)
	})

	expiresAt := s.PowerOff("ROBOT_001", time.Second)
	assert.Equal(t, epoch.Add(time.Second), expiresAt)
	assert.True(t, s.IsSuppressed("ROBOT_001"))
	assert.False(t, s.IsSuppressed("ROBOT_002"))

	f.Advance(999 * time.Millisecond)
	assert.True(t, s.IsSuppressed("ROBOT_001"))

	f.Advance(time.Millisecond)
	assert.False(t, s.IsSuppressed("ROBOT_001"))
	assert.Equal(t, []string{"ROBOT_001"}, expired)
	assert.Zero(t, f.Pending())
}

func TestPowerOffDefaultDuration(t *testing.T) {
	f := clock.NewFake(epoch)
	s := suppress.New(f)

	assert.Equal(t, epoch.Add(suppress.DefaultDuration), s.PowerOff("ROBOT_001", 0))
}

func TestPowerOffLastCallerWins(t *testing.T) {
	f := clock.NewFake(epoch)
	s := suppress.New(f)
	fired := 0
	s.OnExpire(func(string) { fired++ })

	s.PowerOff("ROBOT_001", 10*time.Second)
	f.Advance(5 * time.Second)
	s.PowerOff("ROBOT_001", 10*time.Second)
	assert.Equal(t, 1, f.Pending())

	f.Advance(6 * time.Second)
	assert.True(t, s.IsSuppressed("ROBOT_001"))
	assert.Zero(t, fired)

	f.Advance(4 * time.Second)
	assert.False(t, s.IsSuppressed("ROBOT_001"))
	assert.Equal(t, 1, fired)
}

func TestRestoreSkipsHook(t *testing.T) {
	f := clock.NewFake(epoch)
	s := suppress.New(f)
	fired := 0
	s.OnExpire(func(string) { fired++ })

	s.PowerOff("ROBOT_002", time.Minute)
	assert.True(t, s.Restore("ROBOT_002"))
	assert.False(t, s.Restore("ROBOT_002"))
	assert.False(t, s.IsSuppressed("ROBOT_002"))

	f.Advance(2 * time.Minute)
	assert.Zero(t, fired)
}

func TestStaleEntrySelfHeals(t *testing.T) {
	// A scheduler that never fires models a lost timer.
	f := &frozen{Fake: clock.NewFake(epoch)}
	s := suppress.New(f)

	s.PowerOff("ROBOT_003", time.Second)
	f.now = epoch.Add(2 * time.Second)

	assert.False(t, s.IsSuppressed("ROBOT_003"))
	assert.Empty(t, s.Remaining())
}

func TestRemaining(t *testing.T) {
	f := clock.NewFake(epoch)
	s := suppress.New(f)

	s.PowerOff("ROBOT_002", 90*time.Second)
	s.PowerOff("ROBOT_001", 60*time.Second)
	f.Advance(500 * time.Millisecond)

	got := s.Remaining()
	require.Len(t, got, 2)
	assert.Equal(t, "ROBOT_001", got[0].RobotID)
	assert.Equal(t, 60, got[0].RemainingSeconds)
	assert.Equal(t, "ROBOT_002", got[1].RobotID)
	assert.Equal(t, 90, got[1].RemainingSeconds)
}

func TestReset(t *testing.T) {
	f := clock.NewFake(epoch)
	s := suppress.New(f)
	fired := 0
	s.OnExpire(func(string) { fired++ })

	s.PowerOff("ROBOT_001", time.Second)
	s.PowerOff("ROBOT_002", time.Second)
	s.Reset()

	assert.Zero(t, f.Pending())
	assert.Empty(t, s.Remaining())
	f.Advance(time.Minute)
	assert.Zero(t, fired)
}

type frozen struct {
	*clock.Fake
	now time.Time
}

func (f *frozen) Now() time.Time {
	if f.now.IsZero() {
		return f.Fake.Now()
	}
	return f.now
}
