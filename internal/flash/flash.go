// Package flash keeps one-shot notifications between a redirect and the
// next rendered page.
package flash

import (
	"crypto/sha256"
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
)

// Store queues messages for the client that made the request. Pop returns
// the queued messages and clears them.
type Store interface {
	Add(w http.ResponseWriter, r *http.Request, message string) error
	Pop(w http.ResponseWriter, r *http.Request) ([]string, error)
}

const cookieName = "flash"

// CookieStore keeps messages in a signed cookie on the client.
type CookieStore struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewCookieStore signs cookies with a key derived from secret.
func NewCookieStore(secret string, secure bool) *CookieStore {
	hashKey := sha256.Sum256([]byte("flash:" + secret))
	codec := securecookie.New(hashKey[:], nil)
	codec.MaxAge(3600)
	return &CookieStore{codec: codec, secure: secure}
}

func (s *CookieStore) Add(w http.ResponseWriter, r *http.Request, message string) error {
	messages := s.read(r)
	messages = append(messages, message)

	encoded, err := s.codec.Encode(cookieName, messages)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.cookie(encoded, 0))
	return nil
}

func (s *CookieStore) Pop(w http.ResponseWriter, r *http.Request) ([]string, error) {
	if _, err := r.Cookie(cookieName); errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	messages := s.read(r)
	http.SetCookie(w, s.cookie("", -1))
	return messages, nil
}

// read ignores cookies that fail verification so a stale or forged
// cookie never blocks a page.
func (s *CookieStore) read(r *http.Request) []string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return nil
	}
	var messages []string
	if err := s.codec.Decode(cookieName, c.Value, &messages); err != nil {
		return nil
	}
	return messages
}

func (s *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
