package diagnosis

import (
	"os"

	"codeberg.org/mutker/robotwatch/internal/errors"
	"gopkg.in/yaml.v3"
)

// PatternRule is the lookup entry for one (channel, pattern).
type PatternRule struct {
	Description     string   `yaml:"description"`
	Causes          []string `yaml:"causes"`
	Recommendations []string `yaml:"recommendations"`
}

// Rules is the diagnostic lookup table.
type Rules struct {
	Name       string                              `yaml:"name"`
	Version    string                              `yaml:"version"`
	Patterns   map[Channel]map[Pattern]PatternRule `yaml:"patterns"`
	PartCauses map[string]map[Channel][]string     `yaml:"part_causes"`
	Responses  map[Channel][]string                `yaml:"responses"`
	Emergency  []string                            `yaml:"emergency"`
}

var (
	genericCauses          = []string{"Unidentified anomaly outside the expected operating envelope"}
	genericRecommendations = []string{"Schedule a detailed inspection of the part"}
)

// DefaultRules returns the built-in lookup table.
func DefaultRules() Rules {
	return Rules{
		Name:    "RobotDiagnostic",
		Version: "1.0.0",
		Patterns: map[Channel]map[Pattern]PatternRule{
			Temperature: {
				GradualIncrease: {
					Description:     "Temperature rising gradually",
					Causes:          []string{"Reduced cooling efficiency", "Degraded lubricant", "Progressive part wear", "Rising ambient temperature"},
					Recommendations: []string{"Inspect the cooling system", "Replace the lubricant", "Schedule routine part maintenance"},
				},
				SuddenSpike: {
					Description:     "Sudden temperature spike",
					Causes:          []string{"Cooling fan failure", "Insufficient lubricant", "Foreign matter ingress", "Electrical short", "Overload operation"},
					Recommendations: []string{"Stop operation immediately", "Perform an emergency inspection", "Repair the cooling system"},
				},
				IntermittentHigh: {
					Description:     "Intermittent high temperature",
					Causes:          []string{"Thermostat failure", "Partially blocked cooling circuit", "Load fluctuation", "Sensor malfunction"},
					Recommendations: []string{"Replace the thermostat", "Flush the cooling circuit", "Calibrate the sensor"},
				},
			},
			Vibration: {
				HighFrequency: {
					Description:     "High-frequency vibration",
					Causes:          []string{"Gear damage", "Rotor imbalance", "Bearing wear"},
					Recommendations: []string{"Inspect gears and bearings", "Rebalance rotating parts"},
				},
				LowFrequency: {
					Description:     "Low-frequency vibration",
					Causes:          []string{"Loose mounting", "Structural fatigue", "Misalignment"},
					Recommendations: []string{"Tighten mounting bolts", "Check alignment"},
				},
			},
			Humidity: {
				HighHumidity: {
					Description:     "Short-circuit risk from high humidity",
					Causes:          []string{"Humidity sensor fault", "Degraded sealing", "Condensation", "Moisture ingress into circuits"},
					Recommendations: []string{"Inspect the humidity control system", "Check enclosure sealing", "Verify dehumidifier operation"},
				},
				Condensation: {
					Description:     "Failure risk from condensation",
					Causes:          []string{"Condensation from temperature differences", "Inadequate humidity control", "Ventilation failure"},
					Recommendations: []string{"Reduce temperature differences", "Inspect ventilation", "Increase dehumidification"},
				},
			},
			OperatingHours: {
				MaterialFatigue: {
					Description:     "Failure from material fatigue",
					Causes:          []string{"Fatigue from long-term operation", "Cyclic stress", "Material degradation", "Design life exceeded"},
					Recommendations: []string{"Replace the part", "Adjust operating hours", "Carry out preventive maintenance"},
				},
				MechanicalWear: {
					Description:     "Mechanical wear",
					Causes:          []string{"Bearing wear", "Gear damage", "Seal degradation", "Misalignment"},
					Recommendations: []string{"Replace bearings", "Inspect gears", "Adjust alignment"},
				},
			},
		},
		PartCauses: map[string]map[Channel][]string{
			"left_arm": {
				Temperature: {"Insufficient joint lubrication", "Joint actuator overload"},
				Vibration:   {"Joint backlash", "Worn joint bearing"},
			},
			"right_arm": {
				Temperature: {"Insufficient joint lubrication", "Joint actuator overload"},
			},
			"torso": {
				Temperature: {"Cooling system malfunction", "Power unit overheating"},
			},
			"base": {
				Vibration: {"Base misalignment", "Loose floor anchoring"},
			},
		},
		Responses: map[Channel][]string{
			Temperature: {
				"Temperature spike detected. Cooling efficiency may be degraded.",
				"A sharp temperature rise suggests low lubricant or a failed cooling fan.",
				"This temperature pattern indicates overload operation or foreign matter.",
				"Abnormal temperature values may indicate an electrical short or thermostat failure.",
			},
			Vibration: {
				"Rising vibration indicates bearing wear or misalignment.",
				"High-frequency vibration suggests gear damage or imbalance.",
				"Low-frequency vibration indicates loose mounting or a structural problem.",
			},
			Humidity: {
				"High humidity detected. Short-circuit risk is increasing.",
				"Rising humidity suggests degraded sealing or a dehumidifier fault.",
				"Condensation is increasing the risk of circuit failure.",
				"The humidity control system needs inspection.",
			},
			OperatingHours: {
				"Material fatigue is progressing. The part is nearing replacement.",
				"Wear from long-term operation detected. Carry out preventive maintenance.",
				"Cyclic stress is shortening the part's service life.",
				"Replacement is recommended for parts past their design life.",
			},
		},
		Emergency: []string{"An emergency stop is recommended. Perform a detailed inspection once the area is safe."},
	}
}

// lookup returns causes and recommendations for (c, p), preferring a part
// override for causes. Non-normal patterns never yield empty lists.
func (r Rules) lookup(c Channel, p Pattern, partID string) ([]string, []string) {
	if p == PatternNormal {
		return nil, nil
	}

	rule := r.Patterns[c][p]
	causes := rule.Causes
	if override := r.PartCauses[partID][c]; len(override) > 0 {
		causes = override
	}
	recommendations := rule.Recommendations

	if len(causes) == 0 {
		causes = genericCauses
	}
	if len(recommendations) == 0 {
		recommendations = genericRecommendations
	}

	return clone(causes), clone(recommendations)
}

// LoadRules reads a YAML rule file and layers it over DefaultRules. Keys
// missing from the file keep their built-in values.
func LoadRules(path string) (Rules, error) {
	errFactory := errors.New()
	rules := DefaultRules()

	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, errFactory.Wrap(errors.ErrLoadRules, err)
	}

	var file Rules
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return rules, errFactory.Wrap(errors.ErrLoadRules, err)
	}

	if file.Name != "" {
		rules.Name = file.Name
	}
	if file.Version != "" {
		rules.Version = file.Version
	}
	for c, byPattern := range file.Patterns {
		if rules.Patterns[c] == nil {
			rules.Patterns[c] = make(map[Pattern]PatternRule)
		}
		for p, rule := range byPattern {
			rules.Patterns[c][p] = rule
		}
	}
	for part, byChannel := range file.PartCauses {
		if rules.PartCauses[part] == nil {
			rules.PartCauses[part] = make(map[Channel][]string)
		}
		for c, causes := range byChannel {
			rules.PartCauses[part][c] = causes
		}
	}
	for c, responses := range file.Responses {
		if len(responses) > 0 {
			rules.Responses[c] = responses
		}
	}
	if len(file.Emergency) > 0 {
		rules.Emergency = file.Emergency
	}

	return rules, nil
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
