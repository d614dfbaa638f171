package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kbase/idmapping/pkg/api/middleware"
	"github.com/kbase/idmapping/pkg/idmap"
	"github.com/kbase/idmapping/pkg/mapper"
)

const (
	// maxMappingsPerWrite bounds the body of mapping create/delete calls.
	maxMappingsPerWrite = 10000
	// maxIDsPerQuery bounds the body of mapping lookup calls.
	maxIDsPerQuery = 1000
)

// MappingHandler handles the mapping endpoints.
type MappingHandler struct {
	mapper *mapper.Mapper
}

// NewMappingHandler creates a new MappingHandler.
func NewMappingHandler(m *mapper.Mapper) *MappingHandler {
	return &MappingHandler{mapper: m}
}

// MappedID is one side of a mapping as rendered on the wire.
type MappedID struct {
	Namespace string `json:"ns"`
	ID        string `json:"id"`
}

// MappingsResponse is the per-id result of a combined mapping lookup.
type MappingsResponse struct {
	Mappings []MappedID `json:"mappings"`
}

// SeparateMappingsResponse is the per-id result of a mapping lookup with
// the separate flag: Admin holds mappings where the queried id is on the
// administrative side, Other the rest.
type SeparateMappingsResponse struct {
	Admin []MappedID `json:"admin"`
	Other []MappedID `json:"other"`
}

// GetMappingsRequest is the request body for GET /api/v1/mapping/{namespace}.
type GetMappingsRequest struct {
	IDs []string `json:"ids"`
}

// Create handles PUT|POST /api/v1/mapping/{namespace}/{other_namespace}.
// The body is a JSON object mapping ids in the administrative namespace
// to ids in the other namespace.
func (h *MappingHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, func(ctx mappingWrite) error {
		return h.mapper.CreateMapping(ctx.ctx, ctx.auth, ctx.admin, ctx.other)
	})
}

// Delete handles DELETE /api/v1/mapping/{namespace}/{other_namespace}.
// The body shape matches Create. Removing an absent pair is not an error.
func (h *MappingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, func(ctx mappingWrite) error {
		_, err := h.mapper.RemoveMapping(ctx.ctx, ctx.auth, ctx.admin, ctx.other)
		return err
	})
}

type mappingWrite struct {
	ctx   context.Context
	auth  mapper.Auth
	admin idmap.ObjectID
	other idmap.ObjectID
}

// Get handles GET /api/v1/mapping/{namespace}. The body carries the ids
// to look up; namespace_filter restricts results to the named
// namespaces and separate splits results by mapping direction.
func (h *MappingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idmap.NewNamespaceID(chi.URLParam(r, "namespace"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	filter, err := parseNamespaceFilter(r.URL.Query().Get("namespace_filter"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var req GetMappingsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.IDs) > maxIDsPerQuery {
		WriteError(w, r, idmap.NewErrorf(idmap.IllegalParameter,
			"A maximum of %d ids are allowed", maxIDsPerQuery))
		return
	}

	separate := r.URL.Query().Has("separate")
	resp := make(map[string]any, len(req.IDs))
	for _, dataID := range req.IDs {
		oid, err := idmap.NewObjectID(id, dataID)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		forward, reverse, err := h.mapper.GetMappings(r.Context(), oid, filter)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if separate {
			resp[dataID] = SeparateMappingsResponse{
				Admin: toMappedIDs(forward),
				Other: toMappedIDs(reverse),
			}
		} else {
			combined := toMappedIDs(forward)
			combined = append(combined, toMappedIDs(reverse)...)
			resp[dataID] = MappingsResponse{Mappings: combined}
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// write factors the shared shape of Create and Delete: authenticate,
// parse the namespace pair, decode the body, apply op per entry.
func (h *MappingHandler) write(w http.ResponseWriter, r *http.Request, op func(mappingWrite) error) {
	auth, err := middleware.RequireAuth(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	adminNS, err := idmap.NewNamespaceID(chi.URLParam(r, "namespace"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	otherNS, err := idmap.NewNamespaceID(chi.URLParam(r, "other_namespace"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var body map[string]string
	if !decodeJSONBody(w, r, &body) {
		return
	}
	if len(body) > maxMappingsPerWrite {
		WriteError(w, r, idmap.NewErrorf(idmap.IllegalParameter,
			"A maximum of %d ids are allowed", maxMappingsPerWrite))
		return
	}

	for adminID, otherID := range body {
		adminOID, err := idmap.NewObjectID(adminNS, adminID)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		otherOID, err := idmap.NewObjectID(otherNS, otherID)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if err := op(mappingWrite{ctx: r.Context(), auth: auth, admin: adminOID, other: otherOID}); err != nil {
			WriteError(w, r, err)
			return
		}
	}
	WriteNoContent(w)
}

// parseNamespaceFilter splits a comma-separated namespace list,
// validating each entry. An empty value means no filter.
func parseNamespaceFilter(raw string) ([]idmap.NamespaceID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	filter := make([]idmap.NamespaceID, 0, len(parts))
	for _, p := range parts {
		id, err := idmap.NewNamespaceID(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		filter = append(filter, id)
	}
	return filter, nil
}

func toMappedIDs(oids []idmap.ObjectID) []MappedID {
	out := make([]MappedID, 0, len(oids))
	for _, oid := range oids {
		out = append(out, MappedID{Namespace: oid.Namespace.String(), ID: oid.ID})
	}
	return out
}
