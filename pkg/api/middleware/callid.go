// Package middleware provides request middleware for the ID mapping API:
// call ID generation and Authorization header parsing.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"net/http"

	"github.com/kbase/idmapping/internal/logger"
)

type callIDKey struct{}

// CallID assigns every request a 16 digit call ID. The ID is echoed in
// error response bodies so a client report can be correlated with the
// server log.
func CallID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := newCallID()
		ctx := context.WithValue(r.Context(), callIDKey{}, id)

		lc := logger.NewLogContext(clientIP(r))
		lc.CallID = id
		ctx = logger.WithContext(ctx, lc)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCallID returns the call ID assigned by the CallID middleware, or ""
// when the middleware did not run.
func GetCallID(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey{}).(string)
	return id
}

// newCallID returns 16 random decimal digits.
func newCallID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failure means the process is in serious trouble;
		// a constant ID keeps error responses well-formed regardless.
		return "0000000000000000"
	}
	n := binary.BigEndian.Uint64(buf[:]) % 10000000000000000
	return fmt.Sprintf("%016d", n)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP middleware may have replaced RemoteAddr with a bare IP
		return r.RemoteAddr
	}
	return host
}
