package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorman-id/doorman/internal/domain/directory"
	apperrors "github.com/doorman-id/doorman/internal/errors"
)

// memoryProfileStore is a ProfileAdminStore double backed by a slice.
type memoryProfileStore struct {
	profiles []directory.Profile
}

func (s *memoryProfileStore) FindAll(context.Context) ([]directory.Profile, error) {
	return s.profiles, nil
}

func (s *memoryProfileStore) FindByName(_ context.Context, name string) (*directory.Profile, error) {
	for i := range s.profiles {
		if strings.EqualFold(s.profiles[i].Name, name) {
			return &s.profiles[i], nil
		}
	}
	return nil, apperrors.NotFoundf("no directory profile named %q", name)
}

func (s *memoryProfileStore) Save(_ context.Context, p directory.Profile) (*directory.Profile, error) {
	for i := range s.profiles {
		if strings.EqualFold(s.profiles[i].Name, p.Name) {
			return nil, apperrors.Conflict("directory profile already exists")
		}
	}
	s.profiles = append(s.profiles, p)
	return &p, nil
}

func (s *memoryProfileStore) Delete(_ context.Context, name string) (bool, error) {
	for i := range s.profiles {
		if strings.EqualFold(s.profiles[i].Name, name) {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func storedProfile(name string) directory.Profile {
	enabled := true
	return directory.Profile{
		ID:              "1",
		Name:            name,
		Hosts:           []string{"dc1.corp.example.com", "dc2.corp.example.com"},
		Port:            636,
		Encryption:      directory.EncryptionLDAPS,
		NetworkTimeout:  10 * time.Second,
		BaseDN:          "DC=corp,DC=example,DC=com",
		BindDN:          "CN=svc-doorman,OU=Service Accounts,DC=corp,DC=example,DC=com",
		BindPassword:    "hunter2",
		AccountSuffixes: "@corp.example.com",
		SSOEnabled:      &enabled,
	}
}

func TestProfileHandlers_List(t *testing.T) {
	h := &ProfileHandlers{Store: &memoryProfileStore{
		profiles: []directory.Profile{storedProfile("corp")},
	}}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Profiles []profilePayload `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Profiles, 1)
	assert.Equal(t, "corp", body.Profiles[0].Name)
	assert.Equal(t, 10, body.Profiles[0].TimeoutSeconds)
	// Bind password is write-only.
	assert.Empty(t, body.Profiles[0].BindPassword)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestProfileHandlers_Get(t *testing.T) {
	h := &ProfileHandlers{Store: &memoryProfileStore{
		profiles: []directory.Profile{storedProfile("corp")},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/corp", nil)
	req.SetPathValue("name", "corp")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var payload profilePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ldaps", payload.Encryption)
	require.NotNil(t, payload.SSOEnabled)
	assert.True(t, *payload.SSOEnabled)
}

func TestProfileHandlers_Get_NotFound(t *testing.T) {
	h := &ProfileHandlers{Store: &memoryProfileStore{}}

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/ghost", nil)
	req.SetPathValue("name", "ghost")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileHandlers_Create(t *testing.T) {
	store := &memoryProfileStore{}
	h := &ProfileHandlers{Store: store}

	body := `{
		"name": "emea",
		"hosts": ["dc1.emea.example.com"],
		"port": 389,
		"encryption": "starttls",
		"network_timeout_seconds": 5,
		"base_dn": "DC=emea,DC=example,DC=com",
		"bind_dn": "CN=svc,DC=emea,DC=example,DC=com",
		"bind_password": "secret",
		"account_suffixes": "@emea.example.com",
		"sso_enabled": true
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.profiles, 1)
	assert.Equal(t, directory.EncryptionStartTLS, store.profiles[0].Encryption)
	assert.Equal(t, 5*time.Second, store.profiles[0].NetworkTimeout)
	assert.Equal(t, "secret", store.profiles[0].BindPassword)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestProfileHandlers_Create_InvalidEncryption(t *testing.T) {
	h := &ProfileHandlers{Store: &memoryProfileStore{}}

	body := `{"name": "x", "encryption": "tls13"}`
	req := httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileHandlers_Create_Duplicate(t *testing.T) {
	h := &ProfileHandlers{Store: &memoryProfileStore{
		profiles: []directory.Profile{storedProfile("corp")},
	}}

	body := `{"name": "corp"}`
	req := httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProfileHandlers_Delete(t *testing.T) {
	store := &memoryProfileStore{profiles: []directory.Profile{storedProfile("corp")}}
	h := &ProfileHandlers{Store: store}

	req := httptest.NewRequest(http.MethodDelete, "/api/profiles/corp", nil)
	req.SetPathValue("name", "corp")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.profiles)

	// Deleting again: 404.
	req = httptest.NewRequest(http.MethodDelete, "/api/profiles/corp", nil)
	req.SetPathValue("name", "corp")
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
