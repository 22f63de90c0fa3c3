package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/doorman-id/doorman/internal/domain/directory"
)

// ProfileAdminStore is the persistence surface the profile admin API needs.
type ProfileAdminStore interface {
	FindAll(ctx context.Context) ([]directory.Profile, error)
	FindByName(ctx context.Context, name string) (*directory.Profile, error)
	Save(ctx context.Context, p directory.Profile) (*directory.Profile, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// ProfileHandlers provides HTTP handlers for directory profile administration.
type ProfileHandlers struct {
	Store ProfileAdminStore
}

// profilePayload is the wire shape of a directory profile. The bind password
// is write-only: accepted on create, never echoed back.
type profilePayload struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name"`
	Hosts           []string `json:"hosts"`
	Port            int      `json:"port"`
	Encryption      string   `json:"encryption"`
	TimeoutSeconds  int      `json:"network_timeout_seconds"`
	BaseDN          string   `json:"base_dn"`
	BindDN          string   `json:"bind_dn"`
	BindPassword    string   `json:"bind_password,omitempty"`
	AccountSuffixes string   `json:"account_suffixes"`
	SSOEnabled      *bool    `json:"sso_enabled"`
}

func toPayload(p directory.Profile) profilePayload {
	return profilePayload{
		ID:              p.ID,
		Name:            p.Name,
		Hosts:           p.Hosts,
		Port:            p.Port,
		Encryption:      string(p.Encryption),
		TimeoutSeconds:  int(p.NetworkTimeout / time.Second),
		BaseDN:          p.BaseDN,
		BindDN:          p.BindDN,
		AccountSuffixes: p.AccountSuffixes,
		SSOEnabled:      p.SSOEnabled,
	}
}

// List handles GET /api/profiles.
func (h *ProfileHandlers) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.FindAll(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	out := make([]profilePayload, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toPayload(p))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"profiles": out})
}

// Get handles GET /api/profiles/{name}.
func (h *ProfileHandlers) Get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("profile name is required"),
		})
		return
	}

	profile, err := h.Store.FindByName(r.Context(), name)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toPayload(*profile))
}

// Create handles POST /api/profiles.
func (h *ProfileHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var payload profilePayload
	if !DecodeJSON(w, r, &payload) {
		return
	}

	var encryption directory.Encryption
	if payload.Encryption != "" {
		if err := encryption.UnmarshalText([]byte(payload.Encryption)); err != nil {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "validation",
				Err:     err,
			})
			return
		}
	} else {
		encryption = directory.EncryptionNone
	}

	saved, err := h.Store.Save(r.Context(), directory.Profile{
		Name:            payload.Name,
		Hosts:           payload.Hosts,
		Port:            payload.Port,
		Encryption:      encryption,
		NetworkTimeout:  time.Duration(payload.TimeoutSeconds) * time.Second,
		BaseDN:          payload.BaseDN,
		BindDN:          payload.BindDN,
		BindPassword:    payload.BindPassword,
		AccountSuffixes: payload.AccountSuffixes,
		SSOEnabled:      payload.SSOEnabled,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toPayload(*saved))
}

// Delete handles DELETE /api/profiles/{name}.
func (h *ProfileHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("profile name is required"),
		})
		return
	}

	deleted, err := h.Store.Delete(r.Context(), name)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("profile not found"),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
