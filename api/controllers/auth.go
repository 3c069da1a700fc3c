package controllers

import (
	"net/http"

	"github.com/dialadrink/backend/api/responses"
	"github.com/dialadrink/backend/api/validators"
	"github.com/dialadrink/backend/internal/auth"
	pkgerrors "github.com/dialadrink/backend/pkg/errors"
	"github.com/dialadrink/backend/pkg/logger"
)

type loginRequest struct {
	Phone    string `json:"phone" validate:"required,min=7"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthLogin wires the staff login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body.Phone, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
