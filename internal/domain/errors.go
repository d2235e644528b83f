package domain

import "errors"

var (
	// ErrUnauthorized is returned when no caller identity could be resolved.
	ErrUnauthorized = errors.New("caller identity not resolved")
	// ErrForbidden is returned when the caller lacks course membership or admin rights.
	ErrForbidden = errors.New("caller not authorized")
	// ErrCourseNotFound indicates the owning course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question id is unknown or not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates an option id is unknown or not part of the claimed question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrUserNotFound indicates the referenced user is not a member of the course.
	ErrUserNotFound = errors.New("user not found")
	// ErrResponseNotFound indicates no submission exists for the (quiz, user) pair.
	ErrResponseNotFound = errors.New("quiz response not found")
	// ErrReportNotFound indicates no report rows exist for the quiz.
	ErrReportNotFound = errors.New("report not found")
	// ErrDeadlinePassed rejects submissions after the quiz deadline.
	ErrDeadlinePassed = errors.New("quiz deadline has passed")
	// ErrAlreadySubmitted enforces the at-most-one-submission invariant.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrValidation covers malformed or inconsistent input.
	ErrValidation = errors.New("validation failed")
	// ErrStorage covers blob store and persistence I/O failures.
	ErrStorage = errors.New("storage failure")
)
