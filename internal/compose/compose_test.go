package compose

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	out := []byte(`{"Name":"machina-neo4j-1","Service":"neo4j","State":"running","Health":"healthy","Status":"Up 2 minutes (healthy)"}
{"Name":"machina-backend-1","Service":"backend","State":"running","Health":"starting","Status":"Up 10 seconds (health: starting)"}
{"Name":"machina-webui-1","Service":"webui","State":"exited","Health":"","Status":"Exited (1)"}
`)

	services, err := parseServices(out)
	require.NoError(t, err)
	require.Len(t, services, 3)

	assert.Equal(t, "neo4j", services[0].Svc)
	assert.True(t, services[0].Healthy())
	assert.False(t, services[0].Starting())

	assert.True(t, services[1].Starting())
	assert.False(t, services[1].Healthy())

	assert.False(t, services[2].Healthy())
}

func TestParseServicesEmpty(t *testing.T) {
	services, err := parseServices([]byte("\n"))
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestParseServicesMalformed(t *testing.T) {
	_, err := parseServices([]byte("not json"))
	assert.Error(t, err)
}

func TestServiceHealthy(t *testing.T) {
	tests := []struct {
		name    string
		service Service
		want    bool
	}{
		{"running no healthcheck", Service{State: "running"}, true},
		{"running healthy", Service{State: "running", Health: "healthy"}, true},
		{"running unhealthy", Service{State: "running", Health: "unhealthy"}, false},
		{"exited", Service{State: "exited"}, false},
		{"created", Service{State: "created", Health: "healthy"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.service.Healthy())
		})
	}
}

func TestProbeEndpoints(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	results := ProbeEndpoints(context.Background(), []Endpoint{
		{Name: "good", URL: ok.URL},
		{Name: "bad", URL: failing.URL},
		{Name: "gone", URL: "http://127.0.0.1:1/nope"},
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "HTTP 200", results[0].Message)
	assert.False(t, results[1].Passed)
	assert.Equal(t, "HTTP 500", results[1].Message)
	assert.False(t, results[2].Passed)
	assert.Equal(t, "unreachable", results[2].Message)
}
