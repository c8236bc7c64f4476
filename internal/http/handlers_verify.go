package httpx

import (
	"errors"
	"net/http"

	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
	"github.com/roadsideiq/verify-api/internal/service"
)

// VerifyHandlers provides HTTP handlers for customer verification operations.
type VerifyHandlers struct {
	Svc *service.VerificationService
}

// Submit handles POST /verifyCustomerInfo.
// The body is an arbitrary JSON object; verificationId and webhookUrl are
// picked out when present, everything else rides along into the result
// payload. The response is an immediate ack; the verification itself runs
// in the background.
func (h *VerifyHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !DecodeJSON(w, r, &body) {
		return
	}

	ack, err := h.Svc.Submit(r.Context(), model.VerificationRequestFromMap(body))
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "submit_failed",
			Err:     errors.New("failed to accept verification request"),
		})
		return
	}

	// verificationId is echoed when the caller supplied one and null
	// otherwise; it is never minted server-side.
	resp := map[string]any{
		"status":         ack.Status,
		"verificationId": nil,
	}
	if ack.VerificationID != "" {
		resp["verificationId"] = ack.VerificationID
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Simulate handles POST /verifyCustomerInfo2_simulation.
// Runs the provider inline and returns the full result without queueing a
// delivery, for callers that want the synchronous mock behavior.
func (h *VerifyHandlers) Simulate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !DecodeJSON(w, r, &body) {
		return
	}

	result, err := h.Svc.Simulate(r.Context(), model.VerificationRequestFromMap(body))
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "simulation_failed",
			Err:     errors.New("failed to run verification simulation"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// GetStatus handles GET /verifications/{id}.
func (h *VerifyHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	verificationID := r.PathValue("id")
	if verificationID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("verification id is required"),
		})
		return
	}

	status, err := h.Svc.GetStatus(r.Context(), verificationID)
	if err != nil {
		if errors.Is(err, data.ErrVerificationStatusNotFound) {
			WriteError(w, ErrorParams{
				Code:    http.StatusNotFound,
				ErrCode: "verification_not_found",
				Err:     errors.New("no status record for verification id"),
			})
			return
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "get_status_failed",
			Err:     errors.New("failed to get verification status"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, status)
}
