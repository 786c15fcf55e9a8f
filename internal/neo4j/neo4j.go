// Package neo4j is a thin client for the Neo4j HTTP transaction API.
//
// Queries go through POST /db/{db}/tx/commit with basic auth. Connection
// settings come from the workspace compose file, so the client works
// against the local dev stack without any extra configuration.
package neo4j

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ConnConfig is everything needed to reach a Neo4j HTTP endpoint.
type ConnConfig struct {
	Host     string
	HTTPPort int
	Username string
	Password string
	Database string
}

// Client executes Cypher statements over the HTTP transaction API.
type Client struct {
	cfg  ConnConfig
	http *http.Client
}

// NewClient returns a client for the given connection settings.
func NewClient(cfg ConnConfig) *Client {
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Statement is a single Cypher statement with optional parameters.
type Statement struct {
	Statement  string         `json:"statement"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Result is one statement's result: column names plus row data.
type Result struct {
	Columns []string `json:"columns"`
	Data    []Row    `json:"data"`
}

// Row is one result row.
type Row struct {
	Row []any `json:"row"`
}

// QueryError is an error reported by the server's errors array.
type QueryError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("neo4j: %s: %s", e.Code, e.Message)
}

type txRequest struct {
	Statements []txStatement `json:"statements"`
}

type txStatement struct {
	Statement          string         `json:"statement"`
	Parameters         map[string]any `json:"parameters,omitempty"`
	ResultDataContents []string       `json:"resultDataContents"`
}

type txResponse struct {
	Results []Result     `json:"results"`
	Errors  []QueryError `json:"errors"`
}

// Run executes the statements in a single auto-committed transaction
// and returns one Result per statement. The first server-reported error
// aborts the call.
func (c *Client) Run(ctx context.Context, statements ...Statement) ([]Result, error) {
	reqBody := txRequest{}
	for _, s := range statements {
		reqBody.Statements = append(reqBody.Statements, txStatement{
			Statement:          s.Statement,
			Parameters:         s.Parameters,
			ResultDataContents: []string{"row"},
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/db/%s/tx/commit", c.cfg.Host, c.cfg.HTTPPort, c.cfg.Database)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("neo4j returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded txResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, &decoded.Errors[0]
	}
	return decoded.Results, nil
}

// Query executes a single statement and returns its result.
func (c *Client) Query(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
	results, err := c.Run(ctx, Statement{Statement: cypher, Parameters: params})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Result{}, nil
	}
	return &results[0], nil
}

// Count runs a query that returns a single numeric cell and returns it
// as an int64. Convenient for MATCH ... RETURN count(n) queries.
func (c *Client) Count(ctx context.Context, cypher string) (int64, error) {
	result, err := c.Query(ctx, cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(result.Data) == 0 || len(result.Data[0].Row) == 0 {
		return 0, nil
	}
	n, ok := result.Data[0].Row[0].(float64)
	if !ok {
		return 0, fmt.Errorf("expected numeric result, got %T", result.Data[0].Row[0])
	}
	return int64(n), nil
}
