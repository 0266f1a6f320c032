package data

import "encoding/json"

type Employee struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

func (e *Employee) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Employee) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// Employees is a list of employees as returned by a full scan of the
// table, it exists so the list can be cached as a single value
type Employees []*Employee

func (e *Employees) MarshalBinary() ([]byte, error) {
	if *e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e)
}

func (e *Employees) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}
