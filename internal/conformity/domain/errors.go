package domain

import "errors"

// Business rule rejections. All are deterministic and never retried.
var (
	ErrNoAgentAvailable  = errors.New("no agent available in office")
	ErrAgentUnavailable  = errors.New("agent is not available for assignment")
	ErrIncompleteReview  = errors.New("not all items have been reviewed")
	ErrOpinionAlreadySet = errors.New("item opinion is already set")
	ErrInvalidStatus     = errors.New("operation not allowed in current case status")
	ErrCaseClosed        = errors.New("case is closed")
	ErrItemNotFound      = errors.New("item not found")
	ErrNoOffices         = errors.New("office list is empty")
	ErrUnknownOffice     = errors.New("unknown office")
	ErrInvalidOpinion    = errors.New("invalid opinion")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrSameAgent         = errors.New("case is already assigned to this agent")
	ErrNumbersExhausted  = errors.New("case numbers exhausted for the year")
)
