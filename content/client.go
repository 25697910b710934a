// Package content talks to the headless CMS over its GraphQL endpoint.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultBodyLogLimit = 512
)

type Options struct {
	// Endpoint is the GraphQL URL. Empty means unconfigured.
	Endpoint string
	Timeout  time.Duration
	Logger   zerolog.Logger
	// BodyLogLimit caps how many bytes of variables and response bodies are
	// written to debug logs.
	BodyLogLimit int
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client issues GraphQL queries. It performs exactly one attempt per call;
// retry policy belongs to the caller.
type Client struct {
	endpoint     string
	http         *resty.Client
	logger       zerolog.Logger
	bodyLogLimit int
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

func New(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.BodyLogLimit <= 0 {
		o.BodyLogLimit = DefaultBodyLogLimit
	}

	rc := resty.New().
		SetTimeout(o.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if o.Transport != nil {
		rc.SetTransport(o.Transport)
	}

	return &Client{
		endpoint:     o.Endpoint,
		http:         rc,
		logger:       o.Logger,
		bodyLogLimit: o.BodyLogLimit,
	}
}

// Configured reports whether the client has an endpoint to talk to.
func (c *Client) Configured() bool {
	return c.endpoint != ""
}

// Fetch runs query with variables and decodes the "data" member of the
// response into out. The returned error is nil, ErrEndpointUnconfigured, or
// one of *TransportError, *RemoteError and *SchemaError.
func (c *Client) Fetch(ctx context.Context, query Query, variables map[string]any, out any) error {
	if c.endpoint == "" {
		c.logger.Warn().Str("query", query.Name).Msg("content endpoint not configured, skipping fetch")
		requestCountMetric.WithLabelValues(query.Name, "unconfigured").Inc()
		return ErrEndpointUnconfigured
	}

	if c.logger.GetLevel() <= zerolog.DebugLevel {
		vars, _ := json.Marshal(variables)
		c.logger.Debug().
			Str("query", query.Name).
			Str("variables", truncate(string(vars), c.bodyLogLimit)).
			Msg("content request")
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(graphQLRequest{Query: query.Document, Variables: variables}).
		Post(c.endpoint)
	elapsed := time.Since(start)
	requestDurationMetric.WithLabelValues(query.Name).Observe(elapsed.Seconds())

	if err != nil {
		c.logger.Warn().Err(err).
			Str("query", query.Name).
			Dur("duration", elapsed).
			Msg("content request failed")
		requestCountMetric.WithLabelValues(query.Name, "transport_error").Inc()
		return &TransportError{Err: err}
	}

	status := resp.StatusCode()
	body := resp.Body()
	c.logger.Info().
		Str("query", query.Name).
		Int("status", status).
		Dur("duration", elapsed).
		Int("bytes", len(body)).
		Msg("content request")
	c.logger.Debug().
		Str("query", query.Name).
		Str("response", truncate(string(body), c.bodyLogLimit)).
		Msg("content response")

	err = c.decode(query, resp, out)
	requestCountMetric.WithLabelValues(query.Name, outcomeLabel(err)).Inc()
	return err
}

func (c *Client) decode(query Query, resp *resty.Response, out any) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		if !resp.IsSuccess() {
			return &TransportError{StatusCode: resp.StatusCode()}
		}
		return &SchemaError{Query: query.Name, Reason: "response is not a GraphQL envelope", Err: err}
	}

	if len(env.Errors) > 0 {
		return &RemoteError{Errors: env.Errors}
	}

	if !resp.IsSuccess() {
		return &TransportError{StatusCode: resp.StatusCode()}
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &SchemaError{Query: query.Name, Reason: "response has no data"}
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return &SchemaError{Query: query.Name, Reason: "data does not match query", Err: err}
	}

	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return &SchemaError{Query: query.Name, Reason: "invalid result", Err: err}
		}
	}

	return nil
}

func outcomeLabel(err error) string {
	var (
		te *TransportError
		re *RemoteError
		se *SchemaError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &te):
		return "transport_error"
	case errors.As(err, &re):
		return "remote_error"
	case errors.As(err, &se):
		return "schema_error"
	default:
		return "unknown"
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes truncated)", s[:limit], len(s)-limit)
}
