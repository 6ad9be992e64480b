package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var ErrNoCredentials = errors.New("no credentials provided")

// Credentials identify one caller of the SSE endpoint. Subject keys the
// caller's session; exactly one of APIKey and Token is set.
type Credentials struct {
	Subject string
	APIKey  string
	Token   string
}

// CredentialsFromRequest reads the Authorization JWT, then the api-key
// header, then falls back to defaultKey. The JWT signature is not checked
// here; Sentio validates the token on every API call.
func CredentialsFromRequest(r *http.Request, defaultKey string) (Credentials, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		sub, err := tokenSubject(token)
		if err != nil {
			return Credentials{}, err
		}
		return Credentials{Subject: sub, Token: token}, nil
	}
	if key := r.Header.Get("api-key"); key != "" {
		return Credentials{Subject: key, APIKey: key}, nil
	}
	if defaultKey != "" {
		return Credentials{Subject: defaultKey, APIKey: defaultKey}, nil
	}
	return Credentials{}, ErrNoCredentials
}

func tokenSubject(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parsing authorization token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("authorization token has no subject")
	}
	return claims.Subject, nil
}

// Options returns server options for these credentials on host.
func (c Credentials) Options(host string) Options {
	return Options{Host: host, APIKey: c.APIKey, Token: c.Token}
}
