package lookup

import (
	"context"

	"github.com/kbase/idmapping/pkg/idmap"
	"github.com/kbase/idmapping/pkg/storage"
)

// Default cache hints for the local source. Local lookups are cheap, so
// the hints are short relative to remote sources' token expiries.
const (
	localUserCacheSeconds  = 300
	localValidCacheSeconds = 3600
)

// LocalHandler resolves tokens for users stored in this system. Tokens are
// hashed before any storage lookup; the clear token never reaches the
// store.
type LocalHandler struct {
	store storage.Store
}

// NewLocalHandler creates the handler for the reserved "local" source.
func NewLocalHandler(store storage.Store) *LocalHandler {
	return &LocalHandler{store: store}
}

func (h *LocalHandler) Authsource() idmap.AuthsourceID {
	return idmap.Local
}

func (h *LocalHandler) GetUser(ctx context.Context, token idmap.Token) (UserResult, error) {
	name, admin, err := h.store.GetUser(ctx, token.Hash())
	if err != nil {
		return UserResult{}, err
	}
	return UserResult{
		User:  idmap.User{Source: idmap.Local, Name: name},
		Admin: admin,
		Cache: CacheHint{RelSeconds: localUserCacheSeconds},
	}, nil
}

func (h *LocalHandler) IsValidUser(ctx context.Context, name idmap.Username) (ValidResult, error) {
	exists, err := h.store.UserExists(ctx, name)
	if err != nil {
		return ValidResult{}, err
	}
	return ValidResult{
		Exists: exists,
		Cache:  CacheHint{RelSeconds: localValidCacheSeconds},
	}, nil
}
