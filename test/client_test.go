//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/brianvoe/gofakeit/v6"
)

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func fakeCredentials() credentials {
	return credentials{
		Name:     gofakeit.Name(),
		Email:    gofakeit.Email(),
		Password: gofakeit.Password(true, true, true, false, false, 12),
	}
}

// do sends payload as JSON and decodes the answer into a generic map.
func (s *IntegrationTestSuite) do(
	ctx context.Context,
	method, path, token string,
	payload any,
) (int, map[string]any) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, body)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var decoded map[string]any
	if len(respBytes) > 0 {
		s.Require().NoError(json.Unmarshal(respBytes, &decoded), string(respBytes))
	}
	return resp.StatusCode, decoded
}

func (s *IntegrationTestSuite) register(ctx context.Context, creds credentials) string {
	status, body := s.do(ctx, "POST", "/api/auth/register", "", creds)
	s.Require().Equal(http.StatusCreated, status, body)
	token, ok := body["token"].(string)
	s.Require().True(ok)
	s.Require().NotEmpty(token)
	return token
}
