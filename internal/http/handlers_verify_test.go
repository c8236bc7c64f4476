package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
	"github.com/roadsideiq/verify-api/internal/mocks"
	"github.com/roadsideiq/verify-api/internal/service"
)

type verifyHandlerDeps struct {
	queue    *mocks.MockJobQueue
	status   *mocks.MockVerificationStatusRepository
	provider *mocks.MockVerificationProvider
	svc      *service.VerificationService
}

func newVerifyHandlers(t *testing.T, ctrl *gomock.Controller) (*VerifyHandlers, verifyHandlerDeps) {
	t.Helper()

	deps := verifyHandlerDeps{
		queue:    mocks.NewMockJobQueue(ctrl),
		status:   mocks.NewMockVerificationStatusRepository(ctrl),
		provider: mocks.NewMockVerificationProvider(ctrl),
	}

	svc, err := service.NewVerificationService(service.VerificationServiceOptions{
		Queue:        deps.queue,
		Status:       deps.status,
		Provider:     deps.provider,
		SyncProvider: service.NewImmediateStubProvider(nil),
	})
	require.NoError(t, err)
	deps.svc = svc

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	return &VerifyHandlers{Svc: svc}, deps
}

func TestVerifyHandlers_Submit(t *testing.T) {
	t.Run("acks immediately and echoes the verification id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		h, deps := newVerifyHandlers(t, ctrl)

		deps.status.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		deps.provider.EXPECT().
			Verify(gomock.Any(), gomock.Any()).
			Return(model.VerificationResult{"response": "SUCCESS"}, nil).
			AnyTimes()
		deps.queue.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(&model.Job{ID: "job-1"}, nil).
			AnyTimes()

		body := `{"verificationId":"ver-1","webhookUrl":"https://hooks.example.com/r","customerName":"Dana Scully"}`
		req := httptest.NewRequest(http.MethodPost, "/verifyCustomerInfo", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "queued", resp["status"])
		assert.Equal(t, "ver-1", resp["verificationId"])
	})

	t.Run("missing verification id is echoed as null", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		h, deps := newVerifyHandlers(t, ctrl)

		deps.provider.EXPECT().
			Verify(gomock.Any(), gomock.Any()).
			Return(model.VerificationResult{"response": "SUCCESS"}, nil).
			AnyTimes()
		deps.queue.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(&model.Job{ID: "job-1"}, nil).
			AnyTimes()

		req := httptest.NewRequest(http.MethodPost, "/verifyCustomerInfo", strings.NewReader(`{"customerName":"Fox Mulder"}`))
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"verificationId":null`)
	})

	t.Run("malformed body", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		h, _ := newVerifyHandlers(t, ctrl)

		req := httptest.NewRequest(http.MethodPost, "/verifyCustomerInfo", strings.NewReader(`not json`))
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_json")
	})

	t.Run("status store failure on accept", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		h, deps := newVerifyHandlers(t, ctrl)

		deps.status.EXPECT().
			Set(gomock.Any(), gomock.Any()).
			Return(errors.New("redis down"))

		req := httptest.NewRequest(http.MethodPost, "/verifyCustomerInfo", strings.NewReader(`{"verificationId":"ver-2"}`))
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "submit_failed")
	})
}

func TestVerifyHandlers_Simulate(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _ := newVerifyHandlers(t, ctrl)

	body := `{"verificationId":"ver-3","customerName":"Dana Scully"}`
	req := httptest.NewRequest(http.MethodPost, "/verifyCustomerInfo2_simulation", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Simulate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "SUCCESS", result["response"])
	assert.Equal(t, "Dana Scully", result["Customer Name"])
	assert.Equal(t, "ver-3", result["verificationId"])
	assert.NotEmpty(t, result["timestamp"])
}

func TestVerifyHandlers_GetStatus(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		h, deps := newVerifyHandlers(t, ctrl)

		deps.status.EXPECT().
			Get(gomock.Any(), "ver-9").
			Return(&model.VerificationStatus{
				VerificationID: "ver-9",
				State:          model.VerificationStateDelivered,
				Attempts:       2,
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/verifications/ver-9", nil)
		req.SetPathValue("id", "ver-9")
		rec := httptest.NewRecorder()

		h.GetStatus(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var status model.VerificationStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, model.VerificationStateDelivered, status.State)
		assert.Equal(t, 2, status.Attempts)
	})

	t.Run("unknown id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		h, deps := newVerifyHandlers(t, ctrl)

		deps.status.EXPECT().
			Get(gomock.Any(), "ver-missing").
			Return(nil, data.ErrVerificationStatusNotFound)

		req := httptest.NewRequest(http.MethodGet, "/verifications/ver-missing", nil)
		req.SetPathValue("id", "ver-missing")
		rec := httptest.NewRecorder()

		h.GetStatus(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "verification_not_found")
	})

	t.Run("store failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		h, deps := newVerifyHandlers(t, ctrl)

		deps.status.EXPECT().
			Get(gomock.Any(), "ver-10").
			Return(nil, errors.New("redis down"))

		req := httptest.NewRequest(http.MethodGet, "/verifications/ver-10", nil)
		req.SetPathValue("id", "ver-10")
		rec := httptest.NewRecorder()

		h.GetStatus(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "get_status_failed")
	})
}
