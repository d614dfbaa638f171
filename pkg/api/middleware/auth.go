package middleware

import (
	"net/http"
	"strings"

	"github.com/kbase/idmapping/pkg/idmap"
	"github.com/kbase/idmapping/pkg/mapper"
)

// The Authorization header carries "<authsource> <token>" separated by a
// single space, e.g. "kbase ABCDE..." or "local OBZG...".

// RequireAuth parses the Authorization header, failing with a NoToken
// error when the header is absent.
func RequireAuth(r *http.Request) (mapper.Auth, error) {
	auth, err := OptionalAuth(r)
	if err != nil {
		return mapper.Auth{}, err
	}
	if auth == nil {
		return mapper.Auth{}, idmap.NewError(idmap.NoToken, "")
	}
	return *auth, nil
}

// OptionalAuth parses the Authorization header, returning nil when the
// header is absent. A present but malformed header is an error.
func OptionalAuth(r *http.Request) (*mapper.Auth, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return nil, idmap.NewError(idmap.IllegalParameter,
			"Expected authsource and token in header")
	}

	source, err := idmap.NewAuthsourceID(parts[0])
	if err != nil {
		return nil, err
	}
	token, err := idmap.ParseToken(parts[1])
	if err != nil {
		return nil, err
	}
	return &mapper.Auth{Source: source, Token: token}, nil
}
