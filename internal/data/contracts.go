package data

import "fmt"

const (
	RouteEmployees                  string = "/employees"
	RouteEmployeesSlash             string = RouteEmployees + "/"
	RouteEmployeesEmployeeID        string = RouteEmployees + "/{" + PathEmployeeID + "}"
	RouteEmployeesEmployeeIDf       string = RouteEmployees + "/%d"
	RouteEmployeesEmployeeIDColumn  string = RouteEmployeesEmployeeID + "/{" + PathColumn + "}/{" + PathNewValue + "}"
	RouteEmployeesEmployeeIDColumnf string = RouteEmployeesEmployeeIDf + "/%s/%s"
	RouteCache                      string = "/cache"
	RouteCacheCounters              string = RouteCache + "/counters"
	RouteTimers                     string = "/timers"
)

const (
	PathEmployeeID string = "employee_id"
	PathColumn     string = "column"
	PathNewValue   string = "new_value"
)

const (
	MessageEmployeeAdded   string = "Employee added"
	MessageEmployeeDeleted string = "Employee deleted"
)

// MessageEmployeeUpdated intentionally has no space between "Employee"
// and the column, clients match on this exact string
func MessageEmployeeUpdated(column Column) string {
	return fmt.Sprintf("Employee%s updated", column)
}

type Message struct {
	Message string `json:"message"`
}

type Error struct {
	Error string `json:"error"`
}
