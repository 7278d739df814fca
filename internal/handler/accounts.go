package handler

import (
	"net/http"

	"github.com/xueqianLu/dscgateway/internal/response"
)

// AccountsHandler handles requests for the managed accounts.
type AccountsHandler struct {
	base
}

// List returns the addresses held by the key manager.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts := h.signer.GetAccounts()
	accStrs := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		accStrs = append(accStrs, acc.Hex())
	}
	response.WriteJSON(w, http.StatusOK, response.OK(AccountsResponse{Accounts: accStrs}))
}

// Create generates a new key in the key manager.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	address, err := h.signer.CreateKey()
	if err != nil {
		h.fail(w, r, err, "create account")
		return
	}
	h.logger(r).WithField("address", address.Hex()).Info("account created")
	response.WriteJSON(w, http.StatusCreated, response.OK(CreateAccountResponse{Address: address.Hex()}))
}
