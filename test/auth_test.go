//go:build integration_test || all_tests

package test

import (
	"context"
	"net/http"
)

func (s *IntegrationTestSuite) TestHealth() {
	status, body := s.do(context.Background(), "GET", "/api/health", "", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("Server is running", body["message"])
	s.Equal("connected", body["database"])
}

func (s *IntegrationTestSuite) TestAuthFlow() {
	ctx := context.Background()
	creds := fakeCredentials()
	token := s.register(ctx, creds)

	status, body := s.do(ctx, "POST", "/api/auth/register", "", creds)
	s.Equal(http.StatusBadRequest, status)
	s.Equal("User with this email already exists", body["message"])

	status, body = s.do(ctx, "GET", "/api/auth/profile", token, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(creds.Name, body["user"].(map[string]any)["name"])

	status, body = s.do(ctx, "POST", "/api/auth/login", "", credentials{Email: creds.Email, Password: "wrong-password"})
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Invalid email or password", body["message"])

	status, body = s.do(ctx, "POST", "/api/auth/change-password", token, map[string]string{
		"currentPassword": creds.Password,
		"newPassword":     "brand-new-secret",
	})
	s.Require().Equal(http.StatusOK, status, body)

	status, body = s.do(ctx, "POST", "/api/auth/login", "", credentials{Email: creds.Email, Password: "brand-new-secret"})
	s.Require().Equal(http.StatusOK, status, body)
	loginToken := body["token"].(string)
	s.NotEqual(token, loginToken)

	status, _ = s.do(ctx, "POST", "/api/auth/logout", loginToken, nil)
	s.Require().Equal(http.StatusOK, status)

	status, body = s.do(ctx, "GET", "/api/auth/profile", loginToken, nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Invalid token.", body["message"])

	// the first session is still alive
	status, _ = s.do(ctx, "GET", "/api/auth/profile", token, nil)
	s.Equal(http.StatusOK, status)
}

func (s *IntegrationTestSuite) TestNoToken() {
	status, body := s.do(context.Background(), "GET", "/api/workouts", "", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Access denied. No token provided.", body["message"])
}
