package session

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const flashTTL = 5 * time.Minute

type flashClaims struct {
	Message string `json:"msg"`
	jwt.RegisteredClaims
}

// Flash carries a single one-shot message across a redirect in a signed cookie.
type Flash struct {
	name       string
	signingKey []byte
	secure     bool
}

func NewFlash(name, signingKey string, secure bool) *Flash {
	return &Flash{name: name, signingKey: []byte(signingKey), secure: secure}
}

// Set stores msg for the next request.
func (f *Flash) Set(w http.ResponseWriter, msg string) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, flashClaims{
		Message: msg,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(flashTTL)),
		},
	})
	signed, err := token.SignedString(f.signingKey)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     f.name,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(flashTTL.Seconds()),
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending message, if any, and clears it. Tampered or
// expired cookies yield "".
func (f *Flash) Pop(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(f.name)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: f.name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: f.secure})

	var claims flashClaims
	_, err = jwt.ParseWithClaims(c.Value, &claims, func(*jwt.Token) (any, error) {
		return f.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ""
	}
	return claims.Message
}
