package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of every lookup failure.
	ErrNotFound = errors.New("not found")
	// ErrCourseNotFound indicates the course does not exist.
	ErrCourseNotFound = fmt.Errorf("course %w", ErrNotFound)
	// ErrActivityNotFound indicates the activity does not exist.
	ErrActivityNotFound = fmt.Errorf("activity %w", ErrNotFound)
	// ErrSubmissionNotFound indicates the submission does not exist or does not match the activity and student.
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
	// ErrStudentNotFound indicates the student does not exist.
	ErrStudentNotFound = fmt.Errorf("student %w", ErrNotFound)

	// ErrPermissionDenied indicates the actor cannot grade in the course.
	ErrPermissionDenied = errors.New("permission denied: grading capability required on course")

	// ErrValidation is the root of input validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrGradeOutOfRange indicates a grade outside 0..100.
	ErrGradeOutOfRange = fmt.Errorf("%w: grade must be between 0 and 100", ErrValidation)
	// ErrTooManyDocuments indicates more reference documents than allowed.
	ErrTooManyDocuments = fmt.Errorf("%w: too many reference documents", ErrValidation)
	// ErrDocumentTooLarge indicates a reference document over the size limit.
	ErrDocumentTooLarge = fmt.Errorf("%w: reference document too large", ErrValidation)
	// ErrUnsupportedDocument indicates a reference document of an unsupported type.
	ErrUnsupportedDocument = fmt.Errorf("%w: unsupported document type", ErrValidation)

	// ErrConflict is returned when a write clashes with existing data.
	ErrConflict = errors.New("conflict")
	// ErrActivityNameTaken indicates the course already has an activity with that name.
	ErrActivityNameTaken = fmt.Errorf("%w: an activity with this name already exists in the course", ErrConflict)

	// ErrSubmissionFileUnavailable indicates a submitted file could not be read for evaluation.
	ErrSubmissionFileUnavailable = errors.New("submission file unavailable")

	// ErrPersistence wraps storage failures during grading writes.
	ErrPersistence = errors.New("persistence failure")
)

// Grading stores named in partial write errors.
const (
	StoreGradeRecord     = "grade_record"
	StoreFeedbackComment = "feedback_comment"
	StoreGradebook       = "gradebook"
)

// PartialWriteError reports a grading write where one store was updated and the next was not.
type PartialWriteError struct {
	Succeeded string
	Failed    string
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: %s saved but %s failed: %v", e.Succeeded, e.Failed, e.Err)
}

// Unwrap exposes the failure of the second store.
func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// Is matches ErrPersistence so callers can treat partial writes as persistence failures.
func (e *PartialWriteError) Is(target error) bool {
	return target == ErrPersistence
}

func persistenceError(store string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, store, err)
}
