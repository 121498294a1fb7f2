package rules

import (
	"fmt"
	"math"
)

// DefaultGeofenceRadiusMeters is used when a caller does not override the
// geofence radius.
const DefaultGeofenceRadiusMeters = 10.0

// GeofenceResult is the verdict of a proximity check against a job site.
// CanProceed mirrors IsValid on the valid-input path and is always false
// when Error is set.
type GeofenceResult struct {
	IsValid        bool    `json:"isValid"`
	CanProceed     bool    `json:"canProceed"`
	DistanceMiles  float64 `json:"distanceMiles"`
	DistanceMeters float64 `json:"distanceMeters"`
	RadiusMeters   float64 `json:"radiusMeters"`
	Message        string  `json:"message,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// ValidateGeofence reports whether observed lies within radiusMeters of
// target. The boundary is inclusive. If either coordinate is invalid no
// geometry is computed and the result carries an error string instead of a
// message. The radius used is always echoed back.
func ValidateGeofence(observed, target Coordinate, radiusMeters float64) GeofenceResult {
	if !observed.Valid() || !target.Valid() {
		return GeofenceResult{
			RadiusMeters: radiusMeters,
			Error:        "Invalid coordinates provided",
		}
	}

	miles, err := Distance(observed, target)
	if err != nil {
		return GeofenceResult{RadiusMeters: radiusMeters, Error: "Invalid coordinates provided"}
	}
	meters := MilesToMeters(miles)

	res := GeofenceResult{
		IsValid:        meters <= radiusMeters,
		DistanceMiles:  miles,
		DistanceMeters: meters,
		RadiusMeters:   radiusMeters,
	}
	res.CanProceed = res.IsValid

	if res.IsValid {
		res.Message = fmt.Sprintf("You are within %g meters of the job site", radiusMeters)
	} else {
		res.Message = fmt.Sprintf("You are %d meters from the job site. Move within %g meters to proceed",
			int(math.Round(meters)), radiusMeters)
	}

	return res
}
