package acoustic

import "errors"

var (
	// ErrTrainingFailure marks a track whose frames could not be summarised.
	// The track is left without a mixture model.
	ErrTrainingFailure = errors.New("mixture model training failed")

	// ErrNotFinalized is returned when a result is requested before Finalize
	ErrNotFinalized = errors.New("accumulator has not been finalized")

	// ErrAlreadyFinalized is returned when frames or a second Finalize
	// arrive after the accumulator reached a terminal state
	ErrAlreadyFinalized = errors.New("accumulator already finalized")

	// ErrInvalidBlob is returned when decoding a blob of the wrong size
	ErrInvalidBlob = errors.New("invalid acoustic blob")
)

// TrainingError describes a failed Finalize for one track
type TrainingError struct {
	TrackID string `json:"track_id"`
	Vectors int    `json:"vectors"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *TrainingError) Error() string {
	msg := e.Message
	if e.TrackID != "" {
		msg = e.TrackID + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *TrainingError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrTrainingFailure}
	}
	return []error{ErrTrainingFailure, e.Cause}
}

// NewTrainingError creates a new training error
func NewTrainingError(trackID string, vectors int, message string, cause error) *TrainingError {
	return &TrainingError{
		TrackID: trackID,
		Vectors: vectors,
		Message: message,
		Cause:   cause,
	}
}
