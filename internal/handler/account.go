package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/logging"
)

type accountService interface {
	Create(ctx context.Context, ownerID uuid.UUID, class domain.AccountClass) (*domain.Account, error)
	GetByNumber(ctx context.Context, number string, caller domain.Principal) (*domain.Account, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
	List(ctx context.Context, caller domain.Principal, limit, offset int) ([]domain.Account, int, error)
	Deactivate(ctx context.Context, id uuid.UUID, caller domain.Principal) error
	UpdateClass(ctx context.Context, id uuid.UUID, class domain.AccountClass, caller domain.Principal) (*domain.Account, error)
}

type balanceConverter interface {
	FromBase(ctx context.Context, centavos int64, to string) (decimal.Decimal, error)
}

type AccountHandler struct {
	accounts accountService
	fx       balanceConverter
}

func NewAccountHandler(accounts accountService, fx balanceConverter) *AccountHandler {
	return &AccountHandler{accounts: accounts, fx: fx}
}

type createAccountRequest struct {
	Class   string `json:"class"`
	OwnerID string `json:"owner_id"`
}

func (r createAccountRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Class != "" && !domain.AccountClass(r.Class).IsValid() {
		errs = append(errs, FieldError{Field: "class", Message: "must be SAVINGS or CHECKING"})
	}
	if r.OwnerID != "" {
		if _, err := uuid.Parse(r.OwnerID); err != nil {
			errs = append(errs, FieldError{Field: "owner_id", Message: "must be a valid id"})
		}
	}
	return errs
}

type accountDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Number    string    `json:"number"`
	Class     string    `json:"class"`
	Balance   int64     `json:"balance"`
	TotalIn   int64     `json:"total_in"`
	TotalOut  int64     `json:"total_out"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`

	DisplayCurrency *string `json:"display_currency,omitempty"`
	DisplayBalance  *string `json:"display_balance,omitempty"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Number:    a.Number,
		Class:     string(a.Class),
		Balance:   a.Balance,
		TotalIn:   a.TotalIn,
		TotalOut:  a.TotalOut,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

// withDisplayBalance annotates the DTO with the balance expressed in the
// requested currency. The stored balance stays authoritative.
func (h *AccountHandler) withDisplayBalance(ctx context.Context, dto accountDTO, currency string) (accountDTO, error) {
	if currency == "" || currency == domain.BaseCurrency {
		return dto, nil
	}
	converted, err := h.fx.FromBase(ctx, dto.Balance, currency)
	if err != nil {
		return dto, err
	}
	display := converted.StringFixed(2)
	dto.DisplayCurrency = &currency
	dto.DisplayBalance = &display
	return dto, nil
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	// Admins may open accounts for other users; everyone else opens their own.
	ownerID := p.ID
	if req.OwnerID != "" {
		requested := uuid.MustParse(req.OwnerID)
		if requested != p.ID && !p.IsAdmin() {
			RespondAppError(w, ErrForbidden, nil)
			return
		}
		ownerID = requested
	}

	account, err := h.accounts.Create(r.Context(), ownerID, domain.AccountClass(req.Class))
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAccountDTO(account))
}

// Mine returns the caller's own account, optionally with the balance shown
// in a foreign currency via ?currency=USD.
func (h *AccountHandler) Mine(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	account, err := h.accounts.GetByOwner(r.Context(), p.ID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dto, err := h.withDisplayBalance(r.Context(), toAccountDTO(account), r.URL.Query().Get("currency"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, dto)
}

func (h *AccountHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	account, err := h.accounts.GetByNumber(r.Context(), r.PathValue("number"), p)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dto, err := h.withDisplayBalance(r.Context(), toAccountDTO(account), r.URL.Query().Get("currency"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, dto)
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	limit, offset := paginationParams(r)
	accounts, total, err := h.accounts.List(r.Context(), p, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]accountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"accounts": dtos,
		"total":    total,
	})
}

type updateAccountRequest struct {
	Class string `json:"class"`
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if !domain.AccountClass(req.Class).IsValid() {
		RespondValidationError(w, []FieldError{{Field: "class", Message: "must be SAVINGS or CHECKING"}})
		return
	}

	account, err := h.accounts.UpdateClass(r.Context(), id, domain.AccountClass(req.Class), p)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
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

	if err := h.accounts.Deactivate(r.Context(), id, p); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
