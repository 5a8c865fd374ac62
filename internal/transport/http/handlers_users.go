package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bazaar/internal/platform/middleware"
	"bazaar/internal/transport/http/shared"
	usermodels "bazaar/internal/users/models"
	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
)

// UserFactory is the admission surface of the user domain.
type UserFactory interface {
	Register(ctx context.Context, caller domain.AccountID, username, bio string) (*usermodels.Profile, error)
	SetFee(ctx context.Context, caller domain.AccountID, newFee uint64) (*usermodels.FactoryState, error)
	WithdrawFees(ctx context.Context, caller domain.AccountID, amount uint64, destination domain.AccountID) (*usermodels.FactoryState, error)
	CheckNameAvailable(ctx context.Context, username string) (bool, error)
	State(ctx context.Context) (*usermodels.FactoryState, error)
}

// UserProfiles is the record-mutation surface of the user domain.
type UserProfiles interface {
	Get(ctx context.Context, address domain.Address) (*usermodels.Profile, error)
	GetByName(ctx context.Context, username string) (*usermodels.Profile, error)
	UpdateBio(ctx context.Context, caller domain.AccountID, bio string) (*usermodels.Profile, error)
	Rename(ctx context.Context, caller domain.AccountID, newUsername string) (*usermodels.Profile, error)
	TransferOwnership(ctx context.Context, caller, newOwner domain.AccountID) (*usermodels.Profile, error)
}

// UserHandler is the thin HTTP layer over the user registry services.
type UserHandler struct {
	logger   *slog.Logger
	factory  UserFactory
	profiles UserProfiles
}

func NewUserHandler(factory UserFactory, profiles UserProfiles, logger *slog.Logger) *UserHandler {
	return &UserHandler{logger: logger, factory: factory, profiles: profiles}
}

// RegisterPublic mounts the unauthenticated read endpoints.
func (h *UserHandler) RegisterPublic(r chi.Router) {
	r.Get("/users/{address}", h.handleGet)
	r.Get("/users/name/{username}", h.handleGetByName)
	r.Get("/users/availability", h.handleAvailability)
}

// RegisterAuthed mounts the caller-gated mutation endpoints.
func (h *UserHandler) RegisterAuthed(r chi.Router) {
	r.Post("/users/register", h.handleRegister)
	r.Post("/users/rename", h.handleRename)
	r.Put("/users/bio", h.handleUpdateBio)
	r.Post("/users/transfer", h.handleTransfer)
}

// RegisterAdmin mounts the admin endpoints. Admin authorization is enforced
// by the service against the factory state, not by the router.
func (h *UserHandler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/users/state", h.handleState)
	r.Put("/admin/users/fee", h.handleSetFee)
	r.Post("/admin/users/withdraw", h.handleWithdraw)
}

type registerUserRequest struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerID(ctx)

	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.factory.Register(ctx, caller, req.Username, req.Bio)
	if err != nil {
		h.logError(r, "register user failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, profile)
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	address := domain.Address(chi.URLParam(r, "address"))
	profile, err := h.profiles.Get(r.Context(), address)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) handleGetByName(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetByName(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

type availabilityResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

func (h *UserHandler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	available, err := h.factory.CheckNameAvailable(r.Context(), username)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, availabilityResponse{Name: username, Available: available})
}

type renameRequest struct {
	NewUsername string `json:"new_username"`
}

func (h *UserHandler) handleRename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.profiles.Rename(ctx, middleware.GetCallerID(ctx), req.NewUsername)
	if err != nil {
		h.logError(r, "rename user failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

type updateBioRequest struct {
	Bio string `json:"bio"`
}

func (h *UserHandler) handleUpdateBio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateBioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.profiles.UpdateBio(ctx, middleware.GetCallerID(ctx), req.Bio)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

type transferRequest struct {
	NewOwner string `json:"new_owner"`
}

func (h *UserHandler) handleTransfer(w http.ResponseWriter, r *http.Request) {
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

	profile, err := h.profiles.TransferOwnership(ctx, middleware.GetCallerID(ctx), newOwner)
	if err != nil {
		h.logError(r, "transfer user profile failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.factory.State(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, state)
}

type setFeeRequest struct {
	Fee uint64 `json:"fee"`
}

func (h *UserHandler) handleSetFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req setFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	state, err := h.factory.SetFee(ctx, middleware.GetCallerID(ctx), req.Fee)
	if err != nil {
		h.logError(r, "set user fee failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, state)
}

type withdrawRequest struct {
	Amount      uint64 `json:"amount"`
	Destination string `json:"destination"`
}

func (h *UserHandler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
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
		h.logError(r, "withdraw user fees failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, state)
}

func (h *UserHandler) logError(r *http.Request, msg string, err error) {
	if h.logger == nil {
		return
	}
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", middleware.GetRequestID(ctx),
	)
}
