package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/fx"
	"github.com/bancagt/backoffice/internal/ledger"
	"github.com/bancagt/backoffice/internal/logging"
)

type ledgerService interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*domain.Movement, error)
	Deposit(ctx context.Context, req ledger.DepositRequest) (*domain.Movement, error)
	Credit(ctx context.Context, req ledger.DepositRequest) (*domain.Movement, error)
	Purchase(ctx context.Context, req ledger.PurchaseRequest) (*domain.Movement, error)
	ReverseDeposit(ctx context.Context, movementID uuid.UUID, initiator domain.Principal) (*domain.Movement, error)
	GetMovement(ctx context.Context, id uuid.UUID, caller domain.Principal) (*domain.Movement, error)
	FindMovements(ctx context.Context, f domain.MovementFilter, caller domain.Principal) ([]domain.MovementDetail, int, error)
	AccountHistory(ctx context.Context, number string, kind *domain.MovementKind, caller domain.Principal, limit, offset int) (*domain.Account, []domain.MovementDetail, int, error)
}

type aliasResolver interface {
	Resolve(ctx context.Context, owner domain.Principal, alias string) (string, error)
}

type depositConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*fx.Conversion, error)
}

type MovementHandler struct {
	ledger    ledgerService
	favorites aliasResolver
	fx        depositConverter
}

func NewMovementHandler(ledgerSvc ledgerService, favorites aliasResolver, converter depositConverter) *MovementHandler {
	return &MovementHandler{ledger: ledgerSvc, favorites: favorites, fx: converter}
}

type movementDTO struct {
	ID                 uuid.UUID  `json:"id"`
	SourceAccountID    *uuid.UUID `json:"source_account_id,omitempty"`
	DestAccountID      *uuid.UUID `json:"dest_account_id,omitempty"`
	Amount             int64      `json:"amount"`
	Kind               string     `json:"kind"`
	ProductID          *uuid.UUID `json:"product_id,omitempty"`
	OccurredAt         time.Time  `json:"occurred_at"`
	Reversed           bool       `json:"reversed"`
	OriginalMovementID *uuid.UUID `json:"original_movement_id,omitempty"`
	Description        string     `json:"description"`
}

type movementDetailDTO struct {
	movementDTO
	SourceNumber *string `json:"source_number,omitempty"`
	SourceHolder *string `json:"source_holder,omitempty"`
	DestNumber   *string `json:"dest_number,omitempty"`
	DestHolder   *string `json:"dest_holder,omitempty"`
	ProductName  *string `json:"product_name,omitempty"`
}

func toMovementDTO(m *domain.Movement) movementDTO {
	return movementDTO{
		ID:                 m.ID,
		SourceAccountID:    m.SourceAccountID,
		DestAccountID:      m.DestAccountID,
		Amount:             m.Amount,
		Kind:               string(m.Kind),
		ProductID:          m.ProductID,
		OccurredAt:         m.OccurredAt,
		Reversed:           m.Reversed,
		OriginalMovementID: m.OriginalMovementID,
		Description:        m.Description,
	}
}

func toMovementDetailDTO(d *domain.MovementDetail) movementDetailDTO {
	return movementDetailDTO{
		movementDTO:  toMovementDTO(&d.Movement),
		SourceNumber: d.SourceNumber,
		SourceHolder: d.SourceHolder,
		DestNumber:   d.DestNumber,
		DestHolder:   d.DestHolder,
		ProductName:  d.ProductName,
	}
}

type transferRequest struct {
	SourceNumber string `json:"source_number"`
	DestNumber   string `json:"dest_number"`
	DestAlias    string `json:"dest_alias"`
	Amount       int64  `json:"amount"`
	Description  string `json:"description"`
}

func (r transferRequest) Validate() []FieldError {
	var errs []FieldError
	if r.SourceNumber == "" {
		errs = append(errs, FieldError{Field: "source_number", Message: "required"})
	}
	if r.DestNumber == "" && r.DestAlias == "" {
		errs = append(errs, FieldError{Field: "dest_number", Message: "dest_number or dest_alias required"})
	}
	if r.DestNumber != "" && r.DestAlias != "" {
		errs = append(errs, FieldError{Field: "dest_alias", Message: "dest_number and dest_alias are mutually exclusive"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be at least 1"})
	}
	return errs
}

func (h *MovementHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	destNumber := req.DestNumber
	if req.DestAlias != "" {
		resolved, err := h.favorites.Resolve(r.Context(), p, req.DestAlias)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
		destNumber = resolved
	}

	m, err := h.ledger.Transfer(r.Context(), ledger.TransferRequest{
		SourceNumber: req.SourceNumber,
		DestNumber:   destNumber,
		Amount:       req.Amount,
		Description:  req.Description,
		Initiator:    p,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer rejected", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toMovementDTO(m))
}

type depositRequest struct {
	DestNumber string `json:"dest_number"`
	// Amount is in minor units of Currency, which defaults to the base
	// currency.
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

func (r depositRequest) Validate() []FieldError {
	var errs []FieldError
	if r.DestNumber == "" {
		errs = append(errs, FieldError{Field: "dest_number", Message: "required"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be at least 1"})
	}
	return errs
}

func (h *MovementHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.handleCredit(w, r, false)
}

func (h *MovementHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.handleCredit(w, r, true)
}

func (h *MovementHandler) handleCredit(w http.ResponseWriter, r *http.Request, adminCredit bool) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	svcReq := ledger.DepositRequest{
		DestNumber:  req.DestNumber,
		Amount:      req.Amount,
		Description: req.Description,
		Initiator:   p,
	}

	// Foreign-currency deposits are converted up front; the ledger only
	// sees base centavos plus the snapshot of what was tendered.
	if req.Currency != "" && req.Currency != domain.BaseCurrency {
		conv, err := h.fx.Convert(r.Context(), decimal.New(req.Amount, -2), req.Currency, domain.BaseCurrency)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
		svcReq.Amount = conv.DestAmount.Shift(2).Round(0).IntPart()
		svcReq.ConvertedAmount = &req.Amount
		rate := conv.FromRate
		svcReq.ExchangeRate = &rate
	}

	var m *domain.Movement
	var err error
	if adminCredit {
		m, err = h.ledger.Credit(r.Context(), svcReq)
	} else {
		m, err = h.ledger.Deposit(r.Context(), svcReq)
	}
	if err != nil {
		logging.FromContext(r.Context()).Warn("credit rejected", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toMovementDTO(m))
}

type purchaseRequest struct {
	SourceNumber string `json:"source_number"`
	ProductID    string `json:"product_id"`
}

func (r purchaseRequest) Validate() []FieldError {
	var errs []FieldError
	if r.SourceNumber == "" {
		errs = append(errs, FieldError{Field: "source_number", Message: "required"})
	}
	if _, err := uuid.Parse(r.ProductID); err != nil {
		errs = append(errs, FieldError{Field: "product_id", Message: "must be a valid id"})
	}
	return errs
}

func (h *MovementHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	m, err := h.ledger.Purchase(r.Context(), ledger.PurchaseRequest{
		SourceNumber: req.SourceNumber,
		ProductID:    uuid.MustParse(req.ProductID),
		Initiator:    p,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("purchase rejected", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toMovementDTO(m))
}

func (h *MovementHandler) Reverse(w http.ResponseWriter, r *http.Request) {
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

	m, err := h.ledger.ReverseDeposit(r.Context(), id, p)
	if err != nil {
		logging.FromContext(r.Context()).Warn("reversal rejected", "movement_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toMovementDTO(m))
}

func (h *MovementHandler) GetByID(w http.ResponseWriter, r *http.Request) {
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

	m, err := h.ledger.GetMovement(r.Context(), id, p)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toMovementDTO(m))
}

// List serves the journal: admins see everything, clients only movements
// touching their own account. Supports kind, reversed, from and to filters.
func (h *MovementHandler) List(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	filter, fields := movementFilterFromQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	details, total, err := h.ledger.FindMovements(r.Context(), filter, p)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]movementDetailDTO, len(details))
	for i := range details {
		dtos[i] = toMovementDetailDTO(&details[i])
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"movements": dtos,
		"total":     total,
	})
}

// History lists all movements touching one account, newest first.
func (h *MovementHandler) History(w http.ResponseWriter, r *http.Request) {
	p, appErr := principalFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var kind *domain.MovementKind
	if v := r.URL.Query().Get("kind"); v != "" {
		k := domain.MovementKind(v)
		if !k.IsValid() {
			RespondValidationError(w, []FieldError{{Field: "kind", Message: "unknown movement kind"}})
			return
		}
		kind = &k
	}

	limit, offset := paginationParams(r)
	account, details, total, err := h.ledger.AccountHistory(r.Context(), r.PathValue("number"), kind, p, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]movementDetailDTO, len(details))
	for i := range details {
		dtos[i] = toMovementDetailDTO(&details[i])
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"account":   toAccountDTO(account),
		"movements": dtos,
		"total":     total,
	})
}

func movementFilterFromQuery(r *http.Request) (domain.MovementFilter, []FieldError) {
	var f domain.MovementFilter
	var fields []FieldError
	q := r.URL.Query()

	if v := q.Get("kind"); v != "" {
		k := domain.MovementKind(v)
		if !k.IsValid() {
			fields = append(fields, FieldError{Field: "kind", Message: "unknown movement kind"})
		} else {
			f.Kind = &k
		}
	}
	if v := q.Get("reversed"); v != "" {
		reversed := v == "true"
		f.Reversed = &reversed
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			fields = append(fields, FieldError{Field: "from", Message: "must be RFC3339"})
		} else {
			f.From = &t
		}
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			fields = append(fields, FieldError{Field: "to", Message: "must be RFC3339"})
		} else {
			f.To = &t
		}
	}
	f.Limit, f.Offset = paginationParams(r)
	return f, fields
}
