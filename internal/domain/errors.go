package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSDKUnsupported      = errors.New("sensorcore is not supported on this device")
	ErrLocationDisabled    = errors.New("location access disabled")
	ErrMotionDisabled      = errors.New("motion data collection disabled")
	ErrSensorCall          = errors.New("sensor call failed")
	ErrSessionNotActive    = errors.New("session is not active")
	ErrNoticeNotFound      = errors.New("notice not found")
	ErrUnsupportedAction   = errors.New("action not offered by notice")
	ErrRecordingNotFound   = errors.New("recording not found")
	ErrArchiveNotAvailable = errors.New("refresh archive not configured")
	ErrRefreshNotFound     = errors.New("refresh report not found")
)

// SenseError is the error code reported by the sensor SDK.
type SenseError string

const (
	SenseGeneralFailure        SenseError = "GeneralFailure"
	SenseLocationDisabled      SenseError = "LocationDisabled"
	SenseDisabled              SenseError = "SenseDisabled"
	SenseSensorNotAvailable    SenseError = "SensorNotAvailable"
	SenseNotActivated          SenseError = "NotActivated"
	SenseSensorDeactivated     SenseError = "SensorDeactivated"
	SenseIncompatibleSDK       SenseError = "IncompatibleSDK"
	SenseFeatureNotSupported   SenseError = "FeatureNotSupported"
	SenseInvalidParameter      SenseError = "InvalidParameter"
	SenseOperationInProgress   SenseError = "OperationInProgress"
	SenseInsufficientPrivilege SenseError = "InsufficientPrivilege"
)

// SensorError is a failed call into the sensor SDK.
type SensorError struct {
	Kind  SensorKind
	Op    string
	Code  SenseError
	Cause error
}

func (e *SensorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Kind, e.Op, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Op, e.Code)
}

func (e *SensorError) Unwrap() error {
	return e.Cause
}

// Is maps the SDK code onto the access-disabled and generic failure sentinels.
func (e *SensorError) Is(target error) bool {
	switch target {
	case ErrLocationDisabled:
		return e.Code == SenseLocationDisabled
	case ErrMotionDisabled:
		return e.Code == SenseDisabled
	case ErrSensorCall:
		return true
	}
	return false
}

// SenseErrorOf extracts the SDK code from err, or SenseGeneralFailure when err
// did not come from the SDK.
func SenseErrorOf(err error) SenseError {
	var se *SensorError
	if errors.As(err, &se) {
		return se.Code
	}
	return SenseGeneralFailure
}
