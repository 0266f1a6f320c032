package internal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/antonio-alexander/go-employees/internal"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationId(t *testing.T) {
	ctx := context.TODO()
	assert.Empty(t, internal.CorrelationIdFromCtx(ctx))
	ctx = internal.CtxWithCorrelationId(ctx, "abc")
	assert.Equal(t, "abc", internal.CorrelationIdFromCtx(ctx))
	assert.NotEqual(t, internal.GenerateId(), internal.GenerateId())
}

func TestEnvs(t *testing.T) {
	envs := internal.Envs(map[string]string{
		"A": "1",
		"B": "2",
	}, []string{"B=3", "C=x=y", "D="})
	assert.Equal(t, map[string]string{
		"A": "1",
		"B": "3",
		"C": "x=y",
		"D": "",
	}, envs)
}

func TestLaunchContext(t *testing.T) {
	var wg sync.WaitGroup

	osSignal := make(chan os.Signal, 1)
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer cancel()
	osSignal <- syscall.SIGINT
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		assert.Fail(t, "context not cancelled by signal")
	}
	wg.Wait()
}

func TestDoRequest(t *testing.T) {
	type item struct {
		Value string `json:"value"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not here"}`))
		case "/echo":
			var i item

			_ = json.NewDecoder(r.Body).Decode(&i)
			if q := r.URL.Query().Get("value"); q != "" {
				i.Value = q
			}
			if correlationId := r.Header.Get("Correlation-Id"); correlationId != "" {
				i.Value += "/" + correlationId
			}
			_ = json.NewEncoder(w).Encode(&i)
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	ctx := context.TODO()
	client := &http.Client{}

	response := &item{}
	_, err := internal.DoRequest(ctx, client, server.URL+"/echo", http.MethodPost,
		&item{Value: "json"}, response)
	assert.Nil(t, err)
	assert.Equal(t, "json", response.Value)

	response = &item{}
	_, err = internal.DoRequest(ctx, client, server.URL+"/echo", http.MethodGet,
		url.Values{"value": []string{"query"}}, response)
	assert.Nil(t, err)
	assert.Equal(t, "query", response.Value)

	response = &item{}
	ctx = internal.CtxWithCorrelationId(ctx, "id")
	_, err = internal.DoRequest(ctx, client, server.URL+"/echo", http.MethodPost,
		[]byte(`{"value":"raw"}`), response)
	assert.Nil(t, err)
	assert.Equal(t, "raw/id", response.Value)

	bytes, err := internal.DoRequest(ctx, client, server.URL+"/empty", http.MethodDelete, nil)
	assert.Nil(t, err)
	assert.Empty(t, bytes)

	_, err = internal.DoRequest(ctx, client, server.URL+"/missing", http.MethodGet, nil)
	assert.NotNil(t, err)
	assert.Equal(t, http.StatusNotFound, internal.StatusCode(err))
	assert.Contains(t, err.Error(), "not here")
	assert.Zero(t, internal.StatusCode(nil))
}
