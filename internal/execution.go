package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func GenerateId() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// DoRequest executes a single request against uri, input is marshalled as
// json unless it's url.Values in which case it's added as query parameters;
// on a non-2xx response the status code is available through StatusCode;
// the correlation id in ctx (if any) is sent as the Correlation-Id header
func DoRequest(ctx context.Context, client *http.Client, uri, method string, input interface{}, v ...interface{}) ([]byte, error) {
	var body io.Reader

	switch v := input.(type) {
	default:
		byts, err := json.Marshal(input)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(byts)
	case nil:
	case []byte:
		body = bytes.NewBuffer(v)
	case url.Values:
		uri += "?" + v.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if correlationId := CorrelationIdFromCtx(ctx); correlationId != "" {
		request.Header.Set("Correlation-Id", correlationId)
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	byts, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	switch response.StatusCode {
	default:
		return byts, &StatusError{
			StatusCode: response.StatusCode,
			Status:     response.Status,
			Body:       string(byts),
		}
	case http.StatusNoContent:
		return []byte{}, nil
	case http.StatusOK:
		if len(v) > 0 {
			return byts, json.Unmarshal(byts, v[0])
		}
		return byts, nil
	}
}

// StatusError is returned by DoRequest when the server responds with
// a status code other than 200 or 204
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (s *StatusError) Error() string {
	if s.Body != "" {
		return fmt.Sprintf("%s: %s", s.Status, s.Body)
	}
	return s.Status
}

// StatusCode returns the http status code carried by err, or zero
func StatusCode(err error) int {
	var statusError *StatusError

	if errors.As(err, &statusError) {
		return statusError.StatusCode
	}
	return 0
}

// Envs converts the output of os.Environ() into a map, values in
// environ take precedence over values already in envs
func Envs(envs map[string]string, environ []string) map[string]string {
	if envs == nil {
		envs = make(map[string]string)
	}
	for _, env := range environ {
		if s := strings.Split(env, "="); len(s) > 1 {
			envs[s[0]] = strings.Join(s[1:], "=")
		}
	}
	return envs
}
