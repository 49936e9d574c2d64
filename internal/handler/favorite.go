package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bancagt/backoffice/internal/domain"
)

type favoriteService interface {
	Add(ctx context.Context, owner domain.Principal, accountNumber, alias string) (*domain.Favorite, error)
	List(ctx context.Context, owner domain.Principal) ([]domain.Favorite, error)
	Remove(ctx context.Context, owner domain.Principal, id uuid.UUID) error
}

type FavoriteHandler struct {
	favorites favoriteService
}

func NewFavoriteHandler(favorites favoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

type favoriteDTO struct {
	ID            uuid.UUID `json:"id"`
	AccountNumber string    `json:"account_number"`
	Alias         string    `json:"alias"`
	CreatedAt     time.Time `json:"created_at"`
}

func toFavoriteDTO(f *domain.Favorite) favoriteDTO {
	return favoriteDTO{
		ID:            f.ID,
		AccountNumber: f.AccountNumber,
		Alias:         f.Alias,
		CreatedAt:     f.CreatedAt,
	}
}

type addFavoriteRequest struct {
	AccountNumber string `json:"account_number"`
	Alias         string `json:"alias"`
}

func (r addFavoriteRequest) Validate() []FieldError {
	var errs []FieldError
	if r.AccountNumber == "" {
		errs = append(errs, FieldError{Field: "account_number", Message: "required"})
	}
	if r.Alias == "" {
		errs = append(errs, FieldError{Field: "alias", Message: "required"})
	}
	return errs
}

func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req addFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	f, err := h.favorites.Add(r.Context(), p, req.AccountNumber, req.Alias)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toFavoriteDTO(f))
}

func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	favorites, err := h.favorites.List(r.Context(), p)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]favoriteDTO, len(favorites))
	for i := range favorites {
		dtos[i] = toFavoriteDTO(&favorites[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.favorites.Remove(r.Context(), p, id); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"status": "removed"})
}
