package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// AllowListHandlers lets admins pre-authorize staff emails.
// Changes apply on each user's next resolution run (sign-in or refresh).
type AllowListHandlers struct {
	Svc    ports.AllowListAdmin
	Logger *slog.Logger
}

var requestValidator = newRequestValidator()

// newRequestValidator reports fields by their JSON names.
func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type allowListRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
	Role  string `json:"role"  validate:"required,oneof=customer employee admin owner"`
}

func (h *AllowListHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// List returns every allow-list entry ordered by email.
// GET /admin/allowlist.
func (h *AllowListHandlers) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Svc.List(r.Context())
	if err != nil {
		RenderError(w, r, h.logger(), "allowlist_list_failed", err)
		return
	}
	if entries == nil {
		entries = []domainauth.AllowListEntry{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Add creates or replaces an entry.
// POST /admin/allowlist {"email": "...", "role": "..."}.
func (h *AllowListHandlers) Add(w http.ResponseWriter, r *http.Request) {
	var req allowListRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := requestValidator.Struct(req); err != nil {
		RenderError(w, r, h.logger(), "invalid_request", validationError(err))
		return
	}

	role, _ := domainauth.ParseRole(req.Role)
	if err := h.Svc.Add(r.Context(), req.Email, role); err != nil {
		RenderError(w, r, h.logger(), "allowlist_add_failed", err)
		return
	}

	h.logger().InfoContext(r.Context(), "allow-list entry added",
		"email", domainauth.NormalizeEmail(req.Email),
		"role", role,
		"by", actorID(r),
	)
	WriteJSON(w, http.StatusCreated, map[string]string{
		"email": domainauth.NormalizeEmail(req.Email),
		"role":  string(role),
	})
}

// Remove deletes the entry for the email in the path.
// DELETE /admin/allowlist/{email}.
func (h *AllowListHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if email == "" {
		RenderError(w, r, h.logger(), "invalid_request", apperrors.ValidationField("email", "email is required"))
		return
	}

	removed, err := h.Svc.Remove(r.Context(), email)
	if err != nil {
		RenderError(w, r, h.logger(), "allowlist_remove_failed", err)
		return
	}
	if !removed {
		RenderError(w, r, h.logger(), "allowlist_remove_failed", apperrors.NotFoundf("no allow-list entry for %s", email))
		return
	}

	h.logger().InfoContext(r.Context(), "allow-list entry removed",
		"email", domainauth.NormalizeEmail(email),
		"by", actorID(r),
	)
	w.WriteHeader(http.StatusNoContent)
}

// validationError reports the first failing field as a Validation AppError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.ValidationField(fe.Field(), "invalid "+fe.Field()+": "+fe.Tag())
	}
	return apperrors.Validation(err.Error())
}

func actorID(r *http.Request) string {
	if s, ok := SessionFromContext(r.Context()); ok {
		return s.ID
	}
	return ""
}
