// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import "fmt"

// AnomalyType represents different types of target anomalies
type AnomalyType int

const (
	AnomalyInvalidPattern AnomalyType = iota
	AnomalyOutOfRange
	AnomalyHighSpeed
	AnomalyDuplicateTarget
)

// String returns the anomaly name.
func (a AnomalyType) String() string {
	switch a {
	case AnomalyInvalidPattern:
		return "invalid_pattern"
	case AnomalyOutOfRange:
		return "out_of_range"
	case AnomalyHighSpeed:
		return "high_speed"
	case AnomalyDuplicateTarget:
		return "duplicate_target"
	default:
		return "unknown"
	}
}

// Plausibility limits for decoded targets. The module detects up to 6 m
// within a ±60° cone; the limits leave headroom for calibration error.
const (
	MaxLateralRange = 8000 // mm
	MaxRange        = 8000 // mm
	MaxSpeed        = 1000 // cm/s
)

// ValidationError represents a target validation failure
type ValidationError struct {
	Type    AnomalyType
	Slot    int
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateGroup detects implausible targets in a decoded group.
// Returns a slice of validation errors (empty if the group is plausible)
func ValidateGroup(g *TrackedObjectGroup) []ValidationError {
	errors := []ValidationError{}

	for i, t := range g.Targets {
		if !t.Present {
			continue
		}
		slot := i + 1

		if !t.Valid {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidPattern,
				Slot:    slot,
				Message: fmt.Sprintf("Target %d: unresolved field (x=%d, y=%d, speed=%d)", slot, t.X, t.Y, t.Speed),
				Details: map[string]interface{}{"x": t.X, "y": t.Y, "speed": t.Speed},
			})
			continue
		}

		if t.X < -MaxLateralRange || t.X > MaxLateralRange || t.Y < 0 || t.Y > MaxRange {
			errors = append(errors, ValidationError{
				Type:    AnomalyOutOfRange,
				Slot:    slot,
				Message: fmt.Sprintf("Target %d: position out of range (x=%d mm, y=%d mm)", slot, t.X, t.Y),
				Details: map[string]interface{}{"x": t.X, "y": t.Y, "max_x": MaxLateralRange, "max_y": MaxRange},
			})
		}

		if t.Speed < -MaxSpeed || t.Speed > MaxSpeed {
			errors = append(errors, ValidationError{
				Type:    AnomalyHighSpeed,
				Slot:    slot,
				Message: fmt.Sprintf("Target %d: high speed (%d cm/s, max %d)", slot, t.Speed, MaxSpeed),
				Details: map[string]interface{}{"speed": t.Speed, "max": MaxSpeed},
			})
		}

		for j := 0; j < i; j++ {
			o := g.Targets[j]
			if o.Present && o.X == t.X && o.Y == t.Y {
				errors = append(errors, ValidationError{
					Type:    AnomalyDuplicateTarget,
					Slot:    slot,
					Message: fmt.Sprintf("Target %d: same position as target %d (x=%d, y=%d)", slot, j+1, t.X, t.Y),
					Details: map[string]interface{}{"other": j + 1, "x": t.X, "y": t.Y},
				})
			}
		}
	}

	return errors
}
