package utils

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrProgramNotFound     = errors.New("program not found")
	ErrFlowSessionNotFound = errors.New("flow session not found")
	ErrInviteNotFound      = errors.New("invite not found")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrBadEvent            = errors.New("bad event payload")
	ErrDatabaseError       = errors.New("database error")
	ErrGatewayError        = errors.New("payment gateway error")
)
