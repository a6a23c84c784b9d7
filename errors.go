package scope

import "errors"

// Every failure is logged where it happens and handled locally; the scope
// view simply keeps its previous texture for that frame.
var (
	// ErrAllocation is returned when an object could not be created.
	ErrAllocation = errors.New("scope: allocation failed")
	// ErrLookupMiss is returned when a named node or material was not found.
	ErrLookupMiss = errors.New("scope: lookup miss")
	// ErrNoApplicableMode is returned when the equipped optic matches no camera mode.
	ErrNoApplicableMode = errors.New("scope: no applicable camera mode")
	// ErrStateUnavailable is returned when the selected mode's state was never created.
	ErrStateUnavailable = errors.New("scope: camera state unavailable")
	// ErrTargetAcquisition is returned when a render or depth target could not be acquired.
	ErrTargetAcquisition = errors.New("scope: target acquisition failed")
	// ErrNotConstructed is returned when rendering with missing parts.
	ErrNotConstructed = errors.New("scope: renderer not constructed")
	// ErrUnsupportedMaterial is returned by Composite for unknown material kinds.
	ErrUnsupportedMaterial = errors.New("scope: unsupported material")
)
