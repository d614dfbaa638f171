package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kbase/idmapping/pkg/api/middleware"
	"github.com/kbase/idmapping/pkg/idmap"
	"github.com/kbase/idmapping/pkg/mapper"
)

// NamespaceHandler handles the namespace management endpoints.
type NamespaceHandler struct {
	mapper *mapper.Mapper
}

// NewNamespaceHandler creates a new NamespaceHandler.
func NewNamespaceHandler(m *mapper.Mapper) *NamespaceHandler {
	return &NamespaceHandler{mapper: m}
}

// NamespaceResponse is the response body for GET /api/v1/namespace/{namespace}.
//
// Users is empty unless the caller is a system admin or an admin of this
// namespace. It is never null.
type NamespaceResponse struct {
	Namespace        string   `json:"namespace"`
	PubliclyMappable bool     `json:"publicly_mappable"`
	Users            []string `json:"users"`
}

// NamespaceListResponse is the response body for GET /api/v1/namespace.
type NamespaceListResponse struct {
	PubliclyMappable  []string `json:"publicly_mappable"`
	PrivatelyMappable []string `json:"privately_mappable"`
}

// Create handles PUT|POST /api/v1/namespace/{namespace}.
func (h *NamespaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.RequireAuth(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := idmap.NewNamespaceID(chi.URLParam(r, "namespace"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.mapper.CreateNamespace(r.Context(), auth, id); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// Get handles GET /api/v1/namespace/{namespace}. Authentication is
// optional; it only affects whether the admin list is shown.
func (h *NamespaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.OptionalAuth(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := idmap.NewNamespaceID(chi.URLParam(r, "namespace"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	ns, err := h.mapper.GetNamespace(r.Context(), auth, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	users := []string{}
	for _, u := range ns.AdminList() {
		users = append(users, u.String())
	}
	WriteJSON(w, http.StatusOK, NamespaceResponse{
		Namespace:        ns.ID.String(),
		PubliclyMappable: ns.PubliclyMappable,
		Users:            users,
	})
}

// List handles GET /api/v1/namespace.
func (h *NamespaceHandler) List(w http.ResponseWriter, r *http.Request) {
	public, private, err := h.mapper.GetNamespaces(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := NamespaceListResponse{
		PubliclyMappable:  make([]string, 0, len(public)),
		PrivatelyMappable: make([]string, 0, len(private)),
	}
	for _, id := range public {
		resp.PubliclyMappable = append(resp.PubliclyMappable, id.String())
	}
	for _, id := range private {
		resp.PrivatelyMappable = append(resp.PrivatelyMappable, id.String())
	}
	WriteJSON(w, http.StatusOK, resp)
}

// AddUser handles PUT /api/v1/namespace/{namespace}/user/{authsource}/{user}.
func (h *NamespaceHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	auth, id, user, err := h.namespaceUserParams(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.mapper.AddUserToNamespace(r.Context(), auth, id, user); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// RemoveUser handles DELETE /api/v1/namespace/{namespace}/user/{authsource}/{user}.
func (h *NamespaceHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	auth, id, user, err := h.namespaceUserParams(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.mapper.RemoveUserFromNamespace(r.Context(), auth, id, user); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// SetPubliclyMappable handles PUT /api/v1/namespace/{namespace}/set.
// The publicly_mappable query parameter must be exactly "true" or
// "false"; anything else is rejected.
func (h *NamespaceHandler) SetPubliclyMappable(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.RequireAuth(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := idmap.NewNamespaceID(chi.URLParam(r, "namespace"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var mappable bool
	switch r.URL.Query().Get("publicly_mappable") {
	case "true":
		mappable = true
	case "false":
		mappable = false
	default:
		WriteError(w, r, idmap.NewError(idmap.IllegalParameter,
			"Expected query parameter publicly_mappable with value true or false"))
		return
	}

	if err := h.mapper.SetNamespacePubliclyMappable(r.Context(), auth, id, mappable); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}

func (h *NamespaceHandler) namespaceUserParams(r *http.Request) (mapper.Auth, idmap.NamespaceID, idmap.User, error) {
	auth, err := middleware.RequireAuth(r)
	if err != nil {
		return mapper.Auth{}, "", idmap.User{}, err
	}
	id, err := idmap.NewNamespaceID(chi.URLParam(r, "namespace"))
	if err != nil {
		return mapper.Auth{}, "", idmap.User{}, err
	}
	user, err := idmap.NewUser(chi.URLParam(r, "authsource"), chi.URLParam(r, "user"))
	if err != nil {
		return mapper.Auth{}, "", idmap.User{}, err
	}
	return auth, id, user, nil
}
