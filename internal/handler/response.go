package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"go-contact-api/internal/middleware"
	"go-contact-api/internal/model"
	"go-contact-api/pkg/apierror"
)

const maxBodyBytes = 1 << 20

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, model.APIResponse{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

func writeJSON(w http.ResponseWriter, status int, body model.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := model.APIResponse{
		Status:  false,
		Code:    apierror.CodeInternal,
		Message: "internal server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		if len(apiErr.Fields) > 0 {
			body.Errors = apiErr.Fields
		}
	} else if errors.Is(err, model.ErrUserNotFound) {
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "user not found"
	} else if errors.Is(err, model.ErrEmailTaken) {
		status = http.StatusUnprocessableEntity
		body.Code = apierror.CodeValidation
		body.Message = "validation failed"
		body.Errors = map[string][]string{"email": {"The email has already been taken."}}
	} else if errors.Is(err, model.ErrUnauthorized) || model.IsTokenError(err) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "authentication required"
	} else {
		// Never echo internals to the client.
		slog.Error("unhandled error in writeError",
			"error", err.Error(),
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		)
	}

	writeJSON(w, status, body)
}

// decodeJSON reads a JSON object body. An empty body decodes to the zero value
// so the field rules can report what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apierror.New(apierror.CodeBadRequest, "invalid JSON body", "", http.StatusBadRequest)
	}

	return nil
}
