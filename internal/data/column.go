package data

import "github.com/pkg/errors"

// Column is one of the closed set of employee columns that can be
// updated individually
type Column int

const (
	ColumnName Column = iota + 1
	ColumnDepartment
)

func (c Column) String() string {
	switch c {
	default:
		return ""
	case ColumnName:
		return "name"
	case ColumnDepartment:
		return "department"
	}
}

// ParseColumn is case sensitive, anything other than "name" or
// "department" is an invalid column
func ParseColumn(s string) (Column, error) {
	switch s {
	default:
		return 0, errors.Wrapf(ErrInvalidColumn, "%q", s)
	case ColumnName.String():
		return ColumnName, nil
	case ColumnDepartment.String():
		return ColumnDepartment, nil
	}
}
