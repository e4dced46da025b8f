package sampler_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/robotwatch/internal/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource []float64

func (f *fixedSource) Float64() float64 {
	v := (*f)[0]
	*f = append((*f)[1:], v)
	return v
}

var now = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func TestFromSeedIsDeterministic(t *testing.T) {
	part := sampler.DefaultParts[0]
	a := sampler.FromSeed("ROBOT_001", part, 417, now)
	b := sampler.FromSeed("ROBOT_001", part, 417, now)
	assert.Equal(t, a, b)
}

func TestFromSeedSpike(t *testing.T) {
	part := sampler.Part{ID: "head", Name: "Head"}

	calm := sampler.FromSeed("ROBOT_001", part, 11, now)
	assert.InDelta(t, 46.0, calm.Temperature, 1e-9)
	assert.InDelta(t, 0.155, calm.Vibration, 1e-9)
	assert.InDelta(t, 51.0, calm.Humidity, 1e-9)
	assert.InDelta(t, 3100.0, calm.OperatingHours, 1e-9)

	spiked := sampler.FromSeed("ROBOT_001", part, 30, now)
	assert.InDelta(t, 65.0, spiked.Temperature, 1e-9)
	assert.InDelta(t, 0.3, spiked.Vibration, 1e-9)
	assert.InDelta(t, 65.0, spiked.Humidity, 1e-9)
	assert.Equal(t, sampler.StatusNormal, spiked.Status)
}

func TestFromSeedPartIssues(t *testing.T) {
	arm := sampler.FromSeed("ROBOT_001", sampler.Part{ID: "left_arm", Name: "Left Arm"}, 46, now)
	assert.Equal(t, []string{"Joint lubrication needed"}, arm.Issues)

	head := sampler.FromSeed("ROBOT_001", sampler.Part{ID: "head", Name: "Head"}, 46, now)
	assert.Empty(t, head.Issues)

	noisy := sampler.FromSeed("ROBOT_001", sampler.Part{ID: "head", Name: "Head"}, 34, now)
	assert.True(t, noisy.AbnormalNoise)
	assert.Contains(t, noisy.Issues, "Abnormal noise detected")
}

func TestSampleCoversEveryPart(t *testing.T) {
	src := fixedSource{0.0115, 0.5}
	s := sampler.New(nil, &src)

	readings, err := s.Sample("ROBOT_002", now)
	require.NoError(t, err)
	require.Len(t, readings, len(sampler.DefaultParts))

	for i, r := range readings {
		assert.Equal(t, "ROBOT_002", r.RobotID)
		assert.Equal(t, sampler.DefaultParts[i].ID, r.PartID)
		assert.Equal(t, now, r.Timestamp)
	}
	assert.InDelta(t, 46.0, readings[0].Temperature, 1e-9)
}

func TestNominal(t *testing.T) {
	r := sampler.Nominal("ROBOT_003", sampler.DefaultParts[3], now)
	assert.Equal(t, sampler.StatusStopped, r.Status)
	assert.Equal(t, "torso", r.PartID)
	assert.Zero(t, r.Vibration)
	assert.Zero(t, r.OperatingHours)
}
