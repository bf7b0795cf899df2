package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingBearer = errors.New("gateway: missing or invalid bearer token")

// bearerUserID verifies the request's JWT and returns its "sub" claim.
// Browsers can't set a custom header on a WebSocket handshake, so the
// token is also accepted as a "token" query parameter on /ws.
func bearerUserID(r *http.Request, secret []byte) (string, error) {
	raw := ""
	if auth := r.Header.Get("Authorization"); auth != "" {
		if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
			raw = tok
		}
	}
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return "", errMissingBearer
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("gateway: unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errMissingBearer
	}
	return sub, nil
}
