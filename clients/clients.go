package clients

import (
	"net/http"
	"time"
)

// HTTP talks to a running journal-emotion server.
type HTTP struct {
	c    *http.Client
	base string
	user string
}

func NewHTTP(base, user string) *HTTP {
	return &HTTP{c: &http.Client{Timeout: 60 * time.Second}, base: base, user: user}
}
