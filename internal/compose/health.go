package compose

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/numberone-ai/machina-tools/internal/log"
)

// WaitHealthy polls compose ps with exponential backoff until every
// service reports healthy or the timeout passes. It returns the names of
// the services that never settled.
func (s *Stack) WaitHealthy(ctx context.Context, timeout time.Duration) ([]string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = timeout

	var unsettled []string

	err := backoff.Retry(func() error {
		services, err := s.Ps(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if len(services) == 0 {
			return backoff.Permanent(fmt.Errorf("no services running"))
		}

		unsettled = unsettled[:0]
		for _, svc := range services {
			if !svc.Healthy() {
				unsettled = append(unsettled, svc.Svc)
			}
		}
		if len(unsettled) > 0 {
			log.FromContext(ctx).Debug("waiting for services", "pending", strings.Join(unsettled, ","))
			return fmt.Errorf("%d services not ready", len(unsettled))
		}
		return nil
	}, backoff.WithContext(policy, ctx))

	if err != nil {
		return unsettled, err
	}
	return nil, nil
}

// Endpoint is a sanity-check target probed after the stack is up.
type Endpoint struct {
	Name string
	URL  string
}

// CheckResult is one endpoint probe's outcome.
type CheckResult struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// ProbeEndpoints issues a GET to each endpoint and records whether it
// answered with a non-error status. Probes are quick; a service that is
// up but slow counts as failed here.
func ProbeEndpoints(ctx context.Context, endpoints []Endpoint) []CheckResult {
	client := &http.Client{Timeout: 5 * time.Second}

	results := make([]CheckResult, 0, len(endpoints))
	for _, ep := range endpoints {
		results = append(results, probe(ctx, client, ep))
	}
	return results
}

func probe(ctx context.Context, client *http.Client, ep Endpoint) CheckResult {
	result := CheckResult{Name: ep.Name, URL: ep.URL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	resp, err := client.Do(req)
	if err != nil {
		result.Message = "unreachable"
		return result
	}
	defer resp.Body.Close()

	result.Passed = resp.StatusCode >= 200 && resp.StatusCode < 400
	result.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	return result
}
