package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	MsgNoToken      = "Access denied. No token provided."
	MsgInvalidToken = "Invalid token."
)

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

type Checker interface {
	// IsLogged resolves the token to the user it was issued for.
	IsLogged(ctx context.Context, token string) (ownerID uuid.UUID, logged bool, err error)
	Forget(token string)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
