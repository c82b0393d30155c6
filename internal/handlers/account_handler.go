package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type AccountHandler struct {
	accounts *services.AccountService
	log      *zap.Logger
}

func NewAccountHandler(accounts *services.AccountService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, log: log}
}

// DeleteAccount removes the caller and everything they own. The response
// carries the profile photo URL so the client can clean up stored images.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), services.DefaultAccountTimeout)
	defer cancel()

	result, err := h.accounts.Delete(ctx, user.ID)
	if err != nil {
		writeError(w, h.log, "DeleteAccount", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}
