package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/antonio-alexander/go-employees/internal"
	"github.com/antonio-alexander/go-employees/internal/data"

	pkgerrors "github.com/pkg/errors"
)

const headerCorrelationId string = "Correlation-Id"

func getCorrelationId(request *http.Request) string {
	if correlationId := request.Header.Get(headerCorrelationId); correlationId != "" {
		return correlationId
	}
	return internal.GenerateId()
}

func pathVariable(pathVariables map[string]string, key string) (string, error) {
	// the router matches on the encoded path so values may contain "/"
	return url.PathUnescape(pathVariables[key])
}

func employeeIDFromPath(pathVariables map[string]string) (int64, error) {
	s, err := pathVariable(pathVariables, data.PathEmployeeID)
	if err != nil {
		return -1, pkgerrors.Wrap(data.ErrInvalidEmployeeID, err.Error())
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1, pkgerrors.Wrapf(data.ErrInvalidEmployeeID, "%q", s)
	}
	return id, nil
}

func newValueFromPath(pathVariables map[string]string) (string, error) {
	value, err := pathVariable(pathVariables, data.PathNewValue)
	if err != nil {
		return "", pkgerrors.Wrap(data.ErrMalformedRequest, err.Error())
	}
	return value, nil
}

func employeePartialFromBody(body io.Reader) (data.EmployeePartial, error) {
	var employeePartial data.EmployeePartial

	bytes, err := io.ReadAll(body)
	if err != nil {
		return data.EmployeePartial{}, err
	}
	if err := json.Unmarshal(bytes, &employeePartial); err != nil {
		return data.EmployeePartial{}, pkgerrors.Wrap(data.ErrMalformedRequest, err.Error())
	}
	if err := employeePartial.Validate(); err != nil {
		return data.EmployeePartial{}, err
	}
	return employeePartial, nil
}

func errorToStatusCode(err error) int {
	switch {
	default:
		return http.StatusInternalServerError
	case errors.Is(err, data.ErrEmployeeNotFound):
		return http.StatusNotFound
	case errors.Is(err, data.ErrInvalidColumn):
		return http.StatusBadRequest
	case errors.Is(err, data.ErrInvalidEmployeeID),
		errors.Is(err, data.ErrMalformedRequest):
		return http.StatusUnprocessableEntity
	case errors.Is(err, data.ErrMutationDisabled):
		return http.StatusForbidden
	case errors.Is(err, data.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	}
}

func handleResponse(writer http.ResponseWriter, err error, items ...interface{}) {
	var bytes []byte

	statusCode := http.StatusOK
	if err == nil {
		switch {
		default:
			bytes, err = json.Marshal(items[0])
		case len(items) <= 0:
			writer.WriteHeader(http.StatusNoContent)
			return
		}
	}
	if err != nil {
		statusCode = errorToStatusCode(err)
		if bytes, err = json.Marshal(&data.Error{Error: err.Error()}); err != nil {
			fmt.Printf("error handling response: %s\n", err)
			writer.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	if _, err := writer.Write(bytes); err != nil {
		fmt.Printf("error handling response: %s\n", err)
	}
}
