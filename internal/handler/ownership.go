package handler

import (
	"net/http"

	"github.com/bancagt/backoffice/internal/auth"
	"github.com/bancagt/backoffice/internal/domain"
)

func principalFrom(r *http.Request) (domain.Principal, *AppError) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return domain.Principal{}, ErrMissingToken
	}
	return p, nil
}
