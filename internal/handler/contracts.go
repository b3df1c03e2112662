package handler

import (
	"log/slog"
	"net/http"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/service"
)

// ContractHandler serves leases to the parties that signed them.
type ContractHandler struct {
	contracts *service.ContractService
	responder
}

func NewContractHandler(contracts *service.ContractService, logger *slog.Logger, debug bool) *ContractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractHandler{contracts: contracts, responder: responder{logger: logger, debug: debug}}
}

type ContractsResponse struct {
	Contracts []*domain.Contract `json:"contracts"`
}

type ContractResponse struct {
	Message  string           `json:"message,omitempty"`
	Contract *domain.Contract `json:"contract"`
}

// List handles GET /api/contracts
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.contracts.ListForPrincipal(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, ContractsResponse{Contracts: list})
}

// Create handles POST /api/contracts
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateContractInput
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.contracts.Create(r.Context(), principal(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusCreated, ContractResponse{Message: "contract created", Contract: c})
}

// Get handles GET /api/contracts/{id}
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.contracts.Get(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, ContractResponse{Contract: c})
}

// Update handles PUT /api/contracts/{id}
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateContractInput
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.contracts.Update(r.Context(), principal(r), r.PathValue("id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, ContractResponse{Message: "contract updated", Contract: c})
}

// Delete handles DELETE /api/contracts/{id}
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	summary, err := h.contracts.Delete(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, DeleteResponse{Message: "contract deleted", Deleted: summary})
}
