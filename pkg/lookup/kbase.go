package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kbase/idmapping/pkg/idmap"
)

// Init option keys understood by the kbase handler factory.
const (
	// KBaseInitURL is the auth service root URL. Required.
	KBaseInitURL = "url"
	// KBaseInitToken is a service token used for user existence probes.
	// Required.
	KBaseInitToken = "token"
	// KBaseInitAdminRole is the custom role that marks system admins.
	// Optional; defaults to "ID_MAPPER_ADMIN".
	KBaseInitAdminRole = "admin-role"
)

const (
	kbaseDefaultAdminRole  = "ID_MAPPER_ADMIN"
	kbaseServiceName       = "Authentication Service"
	kbaseValidCacheSeconds = 3600
)

// KBaseHandler resolves tokens against a KBase authentication server over
// HTTP. Construction probes the server root and verifies it identifies as
// the expected service, so a bad URL fails at startup rather than on the
// first request.
type KBaseHandler struct {
	source     idmap.AuthsourceID
	baseURL    string
	token      idmap.Token
	adminRole  string
	httpClient *http.Client
}

// NewKBaseHandler creates a handler for the given source from its init
// options (see the KBaseInit* keys).
func NewKBaseHandler(source idmap.AuthsourceID, cfg map[string]string) (*KBaseHandler, error) {
	rawURL := cfg[KBaseInitURL]
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("authsource %s: missing init option %q", source, KBaseInitURL)
	}
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("authsource %s: invalid url %q: %w", source, rawURL, err)
	}
	token := cfg[KBaseInitToken]
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("authsource %s: missing init option %q", source, KBaseInitToken)
	}
	adminRole := cfg[KBaseInitAdminRole]
	if adminRole == "" {
		adminRole = kbaseDefaultAdminRole
	}

	h := &KBaseHandler{
		source:    source,
		baseURL:   strings.TrimSuffix(rawURL, "/"),
		token:     idmap.Token(token),
		adminRole: adminRole,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if err := h.probe(); err != nil {
		return nil, fmt.Errorf("authsource %s: %w", source, err)
	}
	return h, nil
}

// probe checks the configured endpoint is actually an auth server.
func (h *KBaseHandler) probe() error {
	var root struct {
		ServiceName string `json:"servicename"`
	}
	if err := h.get(context.Background(), "/", "", &root); err != nil {
		return fmt.Errorf("failed to contact auth service at %s: %w", h.baseURL, err)
	}
	if root.ServiceName != kbaseServiceName {
		return fmt.Errorf("unexpected service at %s: %q", h.baseURL, root.ServiceName)
	}
	return nil
}

func (h *KBaseHandler) Authsource() idmap.AuthsourceID {
	return h.source
}

func (h *KBaseHandler) GetUser(ctx context.Context, token idmap.Token) (UserResult, error) {
	var tok struct {
		User     string `json:"user"`
		Expires  int64  `json:"expires"`  // ms since epoch
		CacheFor int64  `json:"cachefor"` // ms
	}
	if err := h.get(ctx, "/api/V2/token", string(token), &tok); err != nil {
		return UserResult{}, err
	}

	var me struct {
		CustomRoles []string `json:"customroles"`
	}
	if err := h.get(ctx, "/api/V2/me", string(token), &me); err != nil {
		return UserResult{}, err
	}

	name, err := idmap.NewUsername(tok.User)
	if err != nil {
		return UserResult{}, fmt.Errorf("auth service returned an illegal user name %q: %w", tok.User, err)
	}

	admin := false
	for _, role := range me.CustomRoles {
		if role == h.adminRole {
			admin = true
			break
		}
	}

	return UserResult{
		User:  idmap.User{Source: h.source, Name: name},
		Admin: admin,
		Cache: CacheHint{
			EpochSeconds: tok.Expires / 1000,
			RelSeconds:   tok.CacheFor / 1000,
		},
	}, nil
}

func (h *KBaseHandler) IsValidUser(ctx context.Context, name idmap.Username) (ValidResult, error) {
	var users map[string]string
	path := "/api/V2/users/?list=" + url.QueryEscape(string(name))
	if err := h.get(ctx, path, string(h.token), &users); err != nil {
		return ValidResult{}, err
	}
	_, exists := users[string(name)]
	return ValidResult{
		Exists: exists,
		Cache:  CacheHint{RelSeconds: kbaseValidCacheSeconds},
	}, nil
}

// get performs a GET against the auth service, translating 401/403 into
// InvalidToken and other failures into wrapped I/O errors.
func (h *KBaseHandler) get(ctx context.Context, path, token string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth service request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read auth service response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return idmap.NewError(idmap.InvalidToken, "")
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("auth service returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode auth service response: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
