package data

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// EmployeePartial is the body used to create an employee, both fields
// are pointers so a missing key can be told apart from an empty string
type EmployeePartial struct {
	Name       *string `json:"name,omitempty"`
	Department *string `json:"department,omitempty"`
}

func (e *EmployeePartial) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *EmployeePartial) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// Validate confirms that both name and department were provided, empty
// strings are allowed
func (e *EmployeePartial) Validate() error {
	switch {
	case e.Name == nil:
		return errors.Wrap(ErrMalformedRequest, "name is required")
	case e.Department == nil:
		return errors.Wrap(ErrMalformedRequest, "department is required")
	}
	return nil
}
