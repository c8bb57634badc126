package handlers

import (
	"encoding/json"
	"net/http"
)

type putCredentialRequest struct {
	APIKey string `json:"api_key"`
}

// PutCredential validates the key against the remote service before it is
// encrypted and stored. The plaintext is never echoed back.
func (a *App) PutCredential(w http.ResponseWriter, r *http.Request) {
	var req putCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Orch.SetCredential(r.Context(), req.APIKey); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"configured": true})
}

func (a *App) GetCredential(w http.ResponseWriter, r *http.Request) {
	configured, err := a.Orch.HasCredential(r.Context())
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"configured": configured})
}

func (a *App) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := a.Orch.DeleteCredential(r.Context()); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
