package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/mocks"
	authmocks "github.com/glosswerks/glosswerks-api/internal/mocks/auth"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

const customerClient = "6a0c54f1-8f0e-4d7b-b5a2-0d5e3c1f7a20"

func allowListRouter(t *testing.T, list ports.AllowListAdmin) http.Handler {
	t.Helper()
	svc := &fakeAuthService{currentFunc: sessionsFor(map[string]*domainauth.Session{
		knownClient:    {ID: "sub-admin", Email: "boss@glosswerks.test", Role: domainauth.RoleAdmin},
		customerClient: customerSession(),
	})}
	return NewRouter(RouterServices{Auth: svc, AllowList: list, Logger: quietLogger()})
}

func adminRequest(method, target, body, clientID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if clientID != "" {
		req.AddCookie(&http.Cookie{Name: ClientCookie, Value: clientID})
	}
	return req
}

func TestAllowListHandlers_RequireAdmin(t *testing.T) {
	router := allowListRouter(t, authmocks.NewMemoryAllowList(nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodGet, "/admin/allowlist", "", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodGet, "/admin/allowlist", "", customerClient))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodGet, "/admin/allowlist", "", knownClient))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries":[]}`, w.Body.String())
}

func TestAllowListHandlers_AddListRemove(t *testing.T) {
	list := authmocks.NewMemoryAllowList(nil)
	router := allowListRouter(t, list)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodPost, "/admin/allowlist",
		`{"email":"Detailer@GlossWerks.test","role":"employee"}`, knownClient))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"email":"detailer@glosswerks.test","role":"employee"}`, w.Body.String())

	role, err := list.LookupRole(context.Background(), "detailer@glosswerks.test")
	require.NoError(t, err)
	assert.Equal(t, "employee", role)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodGet, "/admin/allowlist", "", knownClient))
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Entries []domainauth.AllowListEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Entries, 1)
	assert.Equal(t, "detailer@glosswerks.test", listed.Entries[0].Email)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodDelete, "/admin/allowlist/detailer@glosswerks.test", "", knownClient))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodDelete, "/admin/allowlist/detailer@glosswerks.test", "", knownClient))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAllowListHandlers_AddValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing email", body: `{"role":"employee"}`, field: "email"},
		{name: "malformed email", body: `{"email":"not-an-email","role":"employee"}`, field: "email"},
		{name: "unknown role", body: `{"email":"a@glosswerks.test","role":"superuser"}`, field: "role"},
		{name: "guest is not grantable", body: `{"email":"a@glosswerks.test","role":"guest"}`, field: "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			list := mocks.NewMockAllowListAdmin(ctrl)
			list.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			router := allowListRouter(t, list)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, adminRequest(http.MethodPost, "/admin/allowlist", tt.body, knownClient))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "validation", body["error"])
			assert.Equal(t, tt.field, body["field"])
		})
	}
}

func TestAllowListHandlers_RejectsUnknownFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := allowListRouter(t, mocks.NewMockAllowListAdmin(ctrl))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodPost, "/admin/allowlist",
		`{"email":"a@glosswerks.test","role":"admin","expires":"never"}`, knownClient))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_json")
}

func TestAllowListHandlers_StoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	list := mocks.NewMockAllowListAdmin(ctrl)
	list.EXPECT().List(gomock.Any()).Return(nil, apperrors.Transport(errors.New("dial tcp"), "database unreachable"))
	list.EXPECT().Add(gomock.Any(), "a@glosswerks.test", domainauth.RoleOwner).Return(errors.New("boom"))
	router := allowListRouter(t, list)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodGet, "/admin/allowlist", "", knownClient))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodPost, "/admin/allowlist", `{"email":"a@glosswerks.test","role":"owner"}`, knownClient))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "allowlist_add_failed")
}
