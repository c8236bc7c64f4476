package webhookrunner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/roadsideiq/verify-api/internal/domain/model"
	"github.com/roadsideiq/verify-api/internal/mocks"
	"github.com/roadsideiq/verify-api/internal/service"
)

func newTestDelivery(t *testing.T, url string) *service.DeliveryService {
	t.Helper()
	svc, err := service.NewDeliveryService(service.DeliveryServiceOptions{
		SigningSecret:      "runner-test-secret",
		FallbackWebhookURL: url,
	})
	require.NoError(t, err)
	return svc
}

func newTestRunner(
	t *testing.T,
	repo *mocks.MockJobRepository,
	status *mocks.MockVerificationStatusRepository,
	delivery *service.DeliveryService,
) *Runner {
	t.Helper()
	r, err := NewRunner(RunnerOptions{
		Delivery:   delivery,
		JobsRepo:   repo,
		StatusRepo: status,
	})
	require.NoError(t, err)
	t.Cleanup(r.jobs.StopAllListeners)
	return r
}

func webhookJob(t *testing.T, retryCount int, payload map[string]any) *model.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &model.Job{
		ID:         "job-1",
		Type:       model.JobTypeWebhook,
		Status:     model.JobStatusRunning,
		Payload:    raw,
		RetryCount: retryCount,
		MaxRetries: 3,
	}
}

func TestNewRunner(t *testing.T) {
	t.Run("requires a job source", func(t *testing.T) {
		_, err := NewRunner(RunnerOptions{Delivery: newTestDelivery(t, "http://example.com")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JobsRepo")
	})

	t.Run("requires a delivery service", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		_, err := NewRunner(RunnerOptions{JobsRepo: mocks.NewMockJobRepository(ctrl)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delivery service")
	})
}

func TestRunner_ProcessJob(t *testing.T) {
	t.Run("successful delivery completes the job and records delivered", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		status := mocks.NewMockVerificationStatusRepository(ctrl)
		r := newTestRunner(t, repo, status, newTestDelivery(t, srv.URL))

		repo.EXPECT().Complete(gomock.Any(), "job-1").Return(true, nil)
		status.EXPECT().Set(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, s *model.VerificationStatus) error {
				assert.Equal(t, "ver-1", s.VerificationID)
				assert.Equal(t, model.VerificationStateDelivered, s.State)
				assert.Equal(t, "job-1", s.JobID)
				assert.Equal(t, 1, s.Attempts)
				return nil
			})

		r.processJob(context.Background(), webhookJob(t, 0, map[string]any{
			"verificationId": "ver-1",
			"status":         "SUCCESS",
		}))
	})

	t.Run("failed delivery with retries left only fails the job", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		status := mocks.NewMockVerificationStatusRepository(ctrl)
		r := newTestRunner(t, repo, status, newTestDelivery(t, srv.URL))

		repo.EXPECT().Fail(gomock.Any(), "job-1", gomock.Any()).Return(true, nil)

		r.processJob(context.Background(), webhookJob(t, 0, map[string]any{
			"verificationId": "ver-1",
		}))
	})

	t.Run("exhausted attempts record delivery_failed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		status := mocks.NewMockVerificationStatusRepository(ctrl)
		r := newTestRunner(t, repo, status, newTestDelivery(t, srv.URL))

		repo.EXPECT().Fail(gomock.Any(), "job-1", gomock.Any()).Return(true, nil)
		status.EXPECT().Set(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, s *model.VerificationStatus) error {
				assert.Equal(t, model.VerificationStateDeliveryFailed, s.State)
				assert.Equal(t, 4, s.Attempts)
				assert.Contains(t, s.Detail, "status 502")
				return nil
			})

		r.processJob(context.Background(), webhookJob(t, 3, map[string]any{
			"verificationId": "ver-1",
		}))
	})

	t.Run("failure on the last scheduled retry does not exhaust the job", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		status := mocks.NewMockVerificationStatusRepository(ctrl)
		r := newTestRunner(t, repo, status, newTestDelivery(t, srv.URL))

		// Attempt 3 of a 3-retry job leaves one retry in the budget, so no
		// terminal status may be written yet.
		repo.EXPECT().Fail(gomock.Any(), "job-1", gomock.Any()).Return(true, nil)

		r.processJob(context.Background(), webhookJob(t, 2, map[string]any{
			"verificationId": "ver-1",
		}))
	})

	t.Run("slow delivery keeps the job lease alive", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		status := mocks.NewMockVerificationStatusRepository(ctrl)

		r, err := NewRunner(RunnerOptions{
			Delivery:   newTestDelivery(t, srv.URL),
			JobsRepo:   repo,
			StatusRepo: status,
			Lease:      200 * time.Millisecond,
		})
		require.NoError(t, err)
		t.Cleanup(r.jobs.StopAllListeners)

		repo.EXPECT().Heartbeat(gomock.Any(), "job-1", gomock.Any()).
			Return(true, nil).MinTimes(1)
		repo.EXPECT().Complete(gomock.Any(), "job-1").Return(true, nil)
		status.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil)

		r.processJob(context.Background(), webhookJob(t, 0, map[string]any{
			"verificationId": "ver-1",
		}))
	})

	t.Run("result without verification id skips status writes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		status := mocks.NewMockVerificationStatusRepository(ctrl)
		r := newTestRunner(t, repo, status, newTestDelivery(t, srv.URL))

		repo.EXPECT().Complete(gomock.Any(), "job-1").Return(true, nil)

		r.processJob(context.Background(), webhookJob(t, 0, map[string]any{
			"status": "SUCCESS",
		}))
	})

	t.Run("undecodable payload fails the job", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		status := mocks.NewMockVerificationStatusRepository(ctrl)
		r := newTestRunner(t, repo, status, newTestDelivery(t, "http://example.com"))

		var failMsg string
		repo.EXPECT().Fail(gomock.Any(), "job-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, msg string) (bool, error) {
				failMsg = msg
				return true, nil
			})

		r.processJob(context.Background(), &model.Job{
			ID:         "job-1",
			Type:       model.JobTypeWebhook,
			Payload:    json.RawMessage(`not json`),
			RetryCount: 0,
			MaxRetries: 3,
		})

		assert.Contains(t, failMsg, "decode payload")
	})
}

func TestRunner_Run(t *testing.T) {
	t.Run("drains available jobs and stops on cancel", func(t *testing.T) {
		var delivered atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			delivered.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		status := mocks.NewMockVerificationStatusRepository(ctrl)
		r := newTestRunner(t, repo, status, newTestDelivery(t, srv.URL))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		job := webhookJob(t, 0, map[string]any{"verificationId": "ver-1"})
		first := repo.EXPECT().
			ReserveNext(gomock.Any(), model.JobTypeWebhook, gomock.Any()).
			Return(job, nil)
		repo.EXPECT().
			ReserveNext(gomock.Any(), model.JobTypeWebhook, gomock.Any()).
			After(first).
			DoAndReturn(func(context.Context, model.JobType, int) (*model.Job, error) {
				cancel()
				return nil, model.ErrNoJobsAvailable
			}).
			AnyTimes()
		repo.EXPECT().Complete(gomock.Any(), "job-1").Return(true, nil)
		status.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil)
		repo.EXPECT().
			WaitForNotification(gomock.Any(), model.JobTypeWebhook).
			DoAndReturn(func(ctx context.Context, _ model.JobType) error {
				<-ctx.Done()
				return ctx.Err()
			}).
			AnyTimes()

		err := r.Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), delivered.Load())
	})

	t.Run("fatal reserve errors stop the runner", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		status := mocks.NewMockVerificationStatusRepository(ctrl)
		r := newTestRunner(t, repo, status, newTestDelivery(t, "http://example.com"))

		repo.EXPECT().
			ReserveNext(gomock.Any(), model.JobTypeWebhook, gomock.Any()).
			Return(nil, errors.New("connection refused")).
			AnyTimes()
		repo.EXPECT().
			WaitForNotification(gomock.Any(), model.JobTypeWebhook).
			DoAndReturn(func(ctx context.Context, _ model.JobType) error {
				<-ctx.Done()
				return ctx.Err()
			}).
			AnyTimes()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := r.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reserve next")
	})
}
