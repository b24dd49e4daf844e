package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/api/responses"
	"github.com/visionari-app/visionari-backend/api/validators"
	"github.com/visionari-app/visionari-backend/internal/wizard"
	pkgerrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/logger"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

type startWizardRequest struct {
	ImageID  uuid.UUID `json:"image_id" validate:"required"`
	ImageURL string    `json:"image_url" validate:"required,url"`
}

// StartWizard opens a configuration session for one image.
func StartWizard(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wizard service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload startWizardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Start(r.Context(), wizard.StartRequest{
			UserID:   userID,
			ImageID:  payload.ImageID,
			ImageURL: payload.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// GetWizardSession returns the current session state.
func GetWizardSession(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return wizardSessionHandler(svc, logg, func(r *http.Request, sessionID uuid.UUID) (wizard.SessionView, error) {
		return svc.Get(r.Context(), sessionID)
	})
}

// UpdateWizardConfig replaces the product selections. Only legal on the
// configuration step.
func UpdateWizardConfig(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return wizardSessionHandler(svc, logg, func(r *http.Request, sessionID uuid.UUID) (wizard.SessionView, error) {
		var cfg types.ProductConfig
		if err := validators.DecodeJSONBody(r, &cfg); err != nil {
			return wizard.SessionView{}, err
		}
		return svc.UpdateConfig(r.Context(), sessionID, cfg)
	})
}

// UpdateWizardShipping replaces the shipping address. Only legal on the
// shipping step.
func UpdateWizardShipping(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return wizardSessionHandler(svc, logg, func(r *http.Request, sessionID uuid.UUID) (wizard.SessionView, error) {
		var address types.ShippingAddress
		if err := validators.DecodeJSONBody(r, &address); err != nil {
			return wizard.SessionView{}, err
		}
		return svc.UpdateShipping(r.Context(), sessionID, address)
	})
}

// AdvanceWizard moves the session forward one step if its guard passes.
func AdvanceWizard(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return wizardSessionHandler(svc, logg, func(r *http.Request, sessionID uuid.UUID) (wizard.SessionView, error) {
		return svc.Next(r.Context(), sessionID)
	})
}

// RewindWizard moves the session back one step, keeping entered data.
func RewindWizard(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return wizardSessionHandler(svc, logg, func(r *http.Request, sessionID uuid.UUID) (wizard.SessionView, error) {
		return svc.Back(r.Context(), sessionID)
	})
}

// SubmitWizard dispatches the order. At most one submission runs at a
// time per session; the outcome lands in the returned view.
func SubmitWizard(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return wizardSessionHandler(svc, logg, func(r *http.Request, sessionID uuid.UUID) (wizard.SessionView, error) {
		return svc.Submit(r.Context(), sessionID)
	})
}

// CloseWizardSession abandons the session. The order row, if one was
// created, is unaffected.
func CloseWizardSession(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wizard service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := parsePathUUID(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if view.Eligibility.UserID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "session not found"))
			return
		}

		if err := svc.Close(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "closed"})
	}
}

// wizardSessionHandler wraps the per-session operations with identity,
// path parsing, and the session ownership check.
func wizardSessionHandler(svc wizard.Service, logg *logger.Logger, op func(*http.Request, uuid.UUID) (wizard.SessionView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wizard service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := parsePathUUID(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if current.Eligibility.UserID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "session not found"))
			return
		}

		view, err := op(r, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}
