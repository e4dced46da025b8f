// Package sampler produces synthetic per-part sensor readings for the
// simulated robot floor.
package sampler

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Status is the operating status attached to a part reading.
type Status string

const (
	StatusNormal    Status = "normal"
	StatusWarning   Status = "warning"
	StatusCritical  Status = "critical"
	StatusEmergency Status = "emergency"
	StatusStopped   Status = "stopped"
)

// Part identifies one monitored part of a robot.
type Part struct {
	ID   string
	Name string
}

// DefaultParts is the part catalogue shared by every simulated robot.
var DefaultParts = []Part{
	{ID: "head", Name: "Head"},
	{ID: "left_arm", Name: "Left Arm"},
	{ID: "right_arm", Name: "Right Arm"},
	{ID: "torso", Name: "Torso"},
	{ID: "left_leg", Name: "Left Leg"},
	{ID: "right_leg", Name: "Right Leg"},
	{ID: "base", Name: "Base"},
}

// Reading is one sample for one part. Readings are never mutated after
// they are produced.
type Reading struct {
	RobotID        string
	PartID         string
	PartName       string
	Temperature    float64
	Vibration      float64
	Humidity       float64
	OperatingHours float64
	Voltage        float64
	CPULoad        float64
	AbnormalNoise  bool
	Status         Status
	Issues         []string
	Timestamp      time.Time
}

// Source supplies uniform values in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Sampler draws one seed per part per call and maps it to a Reading.
type Sampler struct {
	parts []Part
	src   Source
	mu    sync.Mutex
}

// New returns a Sampler over parts. A nil src uses a time-seeded PCG.
func New(parts []Part, src Source) *Sampler {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.New(rand.NewPCG(now, now>>1))
	}
	if len(parts) == 0 {
		parts = DefaultParts
	}

	return &Sampler{parts: parts, src: src}
}

// Parts returns the part catalogue.
func (s *Sampler) Parts() []Part {
	out := make([]Part, len(s.parts))
	copy(out, s.parts)
	return out
}

// Sample produces one reading per part for robotID.
func (s *Sampler) Sample(robotID string, now time.Time) ([]Reading, error) {
	s.mu.Lock()
	seeds := make([]int, len(s.parts))
	for i := range seeds {
		seeds[i] = int(s.src.Float64() * 1000)
	}
	s.mu.Unlock()

	readings := make([]Reading, len(s.parts))
	for i, part := range s.parts {
		readings[i] = FromSeed(robotID, part, seeds[i], now)
	}

	return readings, nil
}

// FromSeed maps a seed in [0, 1000) to a reading. It has no side effects.
func FromSeed(robotID string, part Part, seed int, now time.Time) Reading {
	spike := seed%10 == 0
	humiditySpike := seed%15 == 0

	temperature := 35 + float64(seed%20)
	vibration := 0.1 + float64(seed%30)/200
	if spike {
		temperature += 20
		vibration += 0.2
	}

	humidity := 40 + float64(seed%30)
	if humiditySpike {
		humidity += 25
	}

	r := Reading{
		RobotID:        robotID,
		PartID:         part.ID,
		PartName:       part.Name,
		Temperature:    temperature,
		Vibration:      vibration,
		Humidity:       humidity,
		OperatingHours: 2000 + float64(seed%48)*100,
		Voltage:        24 + float64(seed%10-5)/10,
		CPULoad:        20 + float64(seed%60),
		AbnormalNoise:  seed%17 == 0,
		Status:         StatusNormal,
		Timestamp:      now,
	}
	r.Issues = partIssues(part.ID, seed)
	if r.AbnormalNoise {
		r.Issues = append(r.Issues, "Abnormal noise detected")
	}

	return r
}

// Nominal is the flat reading reported for a powered-off part.
func Nominal(robotID string, part Part, now time.Time) Reading {
	return Reading{
		RobotID:     robotID,
		PartID:      part.ID,
		PartName:    part.Name,
		Temperature: 25,
		Humidity:    40,
		Status:      StatusStopped,
		Timestamp:   now,
	}
}

func partIssues(partID string, seed int) []string {
	switch {
	case partID == "left_arm" && seed%23 == 0:
		return []string{"Joint lubrication needed"}
	case partID == "torso" && seed%31 == 0:
		return []string{"Cooling system malfunction"}
	case partID == "base" && seed%19 == 0:
		return []string{"Base alignment check required"}
	default:
		return nil
	}
}
