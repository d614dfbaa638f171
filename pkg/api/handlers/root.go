package handlers

import (
	"net/http"
	"time"
)

// ServiceName is the value reported by the root endpoint.
const ServiceName = "ID Mapping Service"

// RootHandler serves the service information endpoint.
type RootHandler struct {
	version   string
	gitCommit string
}

// NewRootHandler creates a RootHandler reporting the given build info.
func NewRootHandler(version, gitCommit string) *RootHandler {
	return &RootHandler{version: version, gitCommit: gitCommit}
}

// ServiceInfoResponse is the response body for GET /.
type ServiceInfoResponse struct {
	Service       string `json:"service"`
	Version       string `json:"version"`
	GitCommitHash string `json:"gitcommithash"`
	ServerTime    int64  `json:"servertime"`
}

// Get handles GET /.
func (h *RootHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ServiceInfoResponse{
		Service:       ServiceName,
		Version:       h.version,
		GitCommitHash: h.gitCommit,
		ServerTime:    time.Now().UnixMilli(),
	})
}
