// Package gemini adapts Google's genai client to the backend interfaces
// the pipeline consumes: an embedding backend and a generation backend.
// Vendor error shapes are classified into fault kinds here so nothing
// upstream ever inspects a Google error.
package gemini

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ragchat/backend/internal/fault"
)

// Client owns the single genai connection shared by the embedder and the
// generator.
type Client struct {
	client *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fault.Auth("gemini api key not configured")
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, classify(err)
	}
	return &Client{client: c}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// classify maps genai transport errors onto the fault taxonomy. The API
// surfaces both REST-style googleapi errors and gRPC status errors
// depending on transport, so both are handled.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401 || gerr.Code == 403:
			return fault.Auth("gemini rejected credential: %v", err)
		case gerr.Code == 429 || gerr.Code == 408 || gerr.Code >= 500:
			return fault.Transient(err)
		}
		return err
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return fault.Auth("gemini rejected credential: %v", err)
		case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
			return fault.Transient(err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Transient(err)
	}
	return err
}
