package data

import "errors"

var (
	ErrEmployeeNotFound  = errors.New("Employee not found")
	ErrInvalidColumn     = errors.New("Invalid column name")
	ErrInvalidEmployeeID = errors.New("employee_id must be an integer")
	ErrMalformedRequest  = errors.New("malformed request")
	ErrMutationDisabled  = errors.New("mutation disabled")
	ErrMethodNotAllowed  = errors.New("method not allowed")
)
