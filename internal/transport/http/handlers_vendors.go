package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bazaar/internal/platform/middleware"
	"bazaar/internal/transport/http/shared"
	vendormodels "bazaar/internal/vendors/models"
	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
)

// VendorFactory is the admission surface of the vendor domain.
type VendorFactory interface {
	Register(ctx context.Context, caller domain.AccountID, name, description string) (*vendormodels.Profile, error)
	SetFee(ctx context.Context, caller domain.AccountID, newFee uint64) (*vendormodels.FactoryState, error)
	WithdrawFees(ctx context.Context, caller domain.AccountID, amount uint64, destination domain.AccountID) (*vendormodels.FactoryState, error)
	Pause(ctx context.Context, caller domain.AccountID, paused bool) (*vendormodels.FactoryState, error)
	CheckNameAvailable(ctx context.Context, name string) (bool, error)
	State(ctx context.Context) (*vendormodels.FactoryState, error)
}

// VendorProfiles is the record-mutation surface of the vendor domain.
// Vendors are addressed by their current name.
type VendorProfiles interface {
	Get(ctx context.Context, address domain.Address) (*vendormodels.Profile, error)
	GetByName(ctx context.Context, name string) (*vendormodels.Profile, error)
	ListByOwner(ctx context.Context, owner domain.AccountID) ([]*vendormodels.Profile, error)
	UpdateDescription(ctx context.Context, caller domain.AccountID, vendorName, description string) (*vendormodels.Profile, error)
	Rename(ctx context.Context, caller domain.AccountID, vendorName, newName string) (*vendormodels.Profile, error)
	TransferOwnership(ctx context.Context, caller domain.AccountID, vendorName string, newOwner domain.AccountID) (*vendormodels.Profile, error)
	AddProduct(ctx context.Context, caller domain.AccountID, vendorName, productID string, price uint64, description string) (*vendormodels.Profile, error)
	RemoveProduct(ctx context.Context, caller domain.AccountID, vendorName, productID string) (*vendormodels.Profile, error)
}

// VendorHandler is the thin HTTP layer over the vendor registry services.
type VendorHandler struct {
	logger   *slog.Logger
	factory  VendorFactory
	profiles VendorProfiles
}

func NewVendorHandler(factory VendorFactory, profiles VendorProfiles, logger *slog.Logger) *VendorHandler {
	return &VendorHandler{logger: logger, factory: factory, profiles: profiles}
}

func (h *VendorHandler) RegisterPublic(r chi.Router) {
	r.Get("/vendors/{address}", h.handleGet)
	r.Get("/vendors/name/{name}", h.handleGetByName)
	r.Get("/vendors/availability", h.handleAvailability)
	r.Get("/vendors", h.handleListByOwner)
}

func (h *VendorHandler) RegisterAuthed(r chi.Router) {
	r.Post("/vendors/register", h.handleRegister)
	r.Post("/vendors/name/{name}/rename", h.handleRename)
	r.Put("/vendors/name/{name}/description", h.handleUpdateDescription)
	r.Post("/vendors/name/{name}/transfer", h.handleTransfer)
	r.Post("/vendors/name/{name}/products", h.handleAddProduct)
	r.Delete("/vendors/name/{name}/products/{productID}", h.handleRemoveProduct)
}

func (h *VendorHandler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/vendors/state", h.handleState)
	r.Put("/admin/vendors/fee", h.handleSetFee)
	r.Post("/admin/vendors/withdraw", h.handleWithdraw)
	r.Put("/admin/vendors/pause", h.handlePause)
}

type registerVendorRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *VendorHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.factory.Register(ctx, middleware.GetCallerID(ctx), req.Name, req.Description)
	if err != nil {
		h.logError(r, "register vendor failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, profile)
}

func (h *VendorHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), domain.Address(chi.URLParam(r, "address")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *VendorHandler) handleGetByName(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *VendorHandler) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAccountID(r.URL.Query().Get("owner"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "owner query parameter must be a valid account id"))
		return
	}
	profiles, err := h.profiles.ListByOwner(r.Context(), owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if profiles == nil {
		profiles = []*vendormodels.Profile{}
	}
	shared.WriteJSON(w, http.StatusOK, profiles)
}

func (h *VendorHandler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	available, err := h.factory.CheckNameAvailable(r.Context(), name)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, availabilityResponse{Name: name, Available: available})
}

type renameVendorRequest struct {
	NewName string `json:"new_name"`
}

func (h *VendorHandler) handleRename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req renameVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.profiles.Rename(ctx, middleware.GetCallerID(ctx), chi.URLParam(r, "name"), req.NewName)
	if err != nil {
		h.logError(r, "rename vendor failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

type updateDescriptionRequest struct {
	Description string `json:"description"`
}

func (h *VendorHandler) handleUpdateDescription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateDescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.profiles.UpdateDescription(ctx, middleware.GetCallerID(ctx), chi.URLParam(r, "name"), req.Description)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *VendorHandler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	newOwner, err := domain.ParseAccountID(req.NewOwner)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "new_owner must be a valid account id"))
		return
	}

	profile, err := h.profiles.TransferOwnership(ctx, middleware.GetCallerID(ctx), chi.URLParam(r, "name"), newOwner)
	if err != nil {
		h.logError(r, "transfer vendor failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

type addProductRequest struct {
	ID          string `json:"id"`
	Price       uint64 `json:"price"`
	Description string `json:"description"`
}

func (h *VendorHandler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req addProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.profiles.AddProduct(ctx, middleware.GetCallerID(ctx), chi.URLParam(r, "name"), req.ID, req.Price, req.Description)
	if err != nil {
		h.logError(r, "add product failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, profile)
}

func (h *VendorHandler) handleRemoveProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.profiles.RemoveProduct(ctx, middleware.GetCallerID(ctx), chi.URLParam(r, "name"), chi.URLParam(r, "productID"))
	if err != nil {
		h.logError(r, "remove product failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *VendorHandler) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.factory.State(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, state)
}

func (h *VendorHandler) handleSetFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req setFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	state, err := h.factory.SetFee(ctx, middleware.GetCallerID(ctx), req.Fee)
	if err != nil {
		h.logError(r, "set vendor fee failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, state)
}

func (h *VendorHandler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	destination, err := domain.ParseAccountID(req.Destination)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "destination must be a valid account id"))
		return
	}

	state, err := h.factory.WithdrawFees(ctx, middleware.GetCallerID(ctx), req.Amount, destination)
	if err != nil {
		h.logError(r, "withdraw vendor fees failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, state)
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

func (h *VendorHandler) handlePause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	state, err := h.factory.Pause(ctx, middleware.GetCallerID(ctx), req.Paused)
	if err != nil {
		h.logError(r, "pause vendor registration failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, state)
}

func (h *VendorHandler) logError(r *http.Request, msg string, err error) {
	if h.logger == nil {
		return
	}
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", middleware.GetRequestID(ctx),
	)
}
