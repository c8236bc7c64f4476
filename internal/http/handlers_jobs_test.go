package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
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

func newJobHandlers(t *testing.T, repo *mocks.MockJobRepository) *JobHandlers {
	t.Helper()
	svc := service.MustNewJobService(service.JobServiceOptions{
		Repo:         repo,
		DefaultLease: 30 * time.Second,
	})
	t.Cleanup(svc.StopAllListeners)
	return &JobHandlers{Svc: svc}
}

func TestJobHandlers_GetStatus(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		h := newJobHandlers(t, repo)

		lastErr := "webhook returned status 502"
		repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(&model.Job{
			ID:         "job-1",
			Type:       model.JobTypeWebhook,
			Status:     model.JobStatusFailed,
			RetryCount: 3,
			LastError:  &lastErr,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
		req.SetPathValue("id", "job-1")
		rec := httptest.NewRecorder()

		h.GetStatus(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var status model.JobStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, model.JobStatusFailed, status.Status)
		assert.Equal(t, 3, status.RetryCount)
		require.NotNil(t, status.LastError)
		assert.Equal(t, lastErr, *status.LastError)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		h := newJobHandlers(t, repo)

		repo.EXPECT().GetByID(gomock.Any(), "job-missing").Return(nil, data.ErrJobNotFound)

		req := httptest.NewRequest(http.MethodGet, "/jobs/job-missing", nil)
		req.SetPathValue("id", "job-missing")
		rec := httptest.NewRecorder()

		h.GetStatus(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "job_not_found")
	})

	t.Run("repository failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		h := newJobHandlers(t, repo)

		repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(nil, errors.New("connection refused"))

		req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
		req.SetPathValue("id", "job-1")
		rec := httptest.NewRecorder()

		h.GetStatus(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "get_status_failed")
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestJobHandlers_Stats(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		h := newJobHandlers(t, repo)

		repo.EXPECT().Stats(gomock.Any(), model.JobTypeWebhook).Return(&model.JobStats{
			Pending:   4,
			Running:   1,
			Completed: 10,
			Failed:    2,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/jobs/stats/webhook", nil)
		req.SetPathValue("type", "webhook")
		rec := httptest.NewRecorder()

		h.Stats(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var stats model.JobStats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 4, stats.Pending)
		assert.Equal(t, 2, stats.Failed)
	})

	t.Run("repository failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		h := newJobHandlers(t, repo)

		repo.EXPECT().Stats(gomock.Any(), model.JobTypeWebhook).Return(nil, errors.New("boom"))

		req := httptest.NewRequest(http.MethodGet, "/jobs/stats/webhook", nil)
		req.SetPathValue("type", "webhook")
		rec := httptest.NewRecorder()

		h.Stats(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "stats_failed")
	})
}

func TestJobHandlers_ListRecent(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		h := newJobHandlers(t, repo)

		repo.EXPECT().
			ListRecentByType(gomock.Any(), model.JobTypeWebhook, defaultRecentJobsLimit).
			Return([]*model.Job{
				{ID: "job-2", Type: model.JobTypeWebhook, Status: model.JobStatusCompleted},
				{ID: "job-1", Type: model.JobTypeWebhook, Status: model.JobStatusFailed},
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/jobs/recent/webhook", nil)
		req.SetPathValue("type", "webhook")
		rec := httptest.NewRecorder()

		h.ListRecent(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Jobs []*model.Job `json:"jobs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Jobs, 2)
		assert.Equal(t, "job-2", resp.Jobs[0].ID)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		h := newJobHandlers(t, repo)

		repo.EXPECT().
			ListRecentByType(gomock.Any(), model.JobTypeWebhook, maxRecentJobsLimit).
			Return(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/jobs/recent/webhook?limit=100000", nil)
		req.SetPathValue("type", "webhook")
		rec := httptest.NewRecorder()

		h.ListRecent(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("repository failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockJobRepository(ctrl)
		h := newJobHandlers(t, repo)

		repo.EXPECT().
			ListRecentByType(gomock.Any(), model.JobTypeWebhook, defaultRecentJobsLimit).
			Return(nil, errors.New("boom"))

		req := httptest.NewRequest(http.MethodGet, "/jobs/recent/webhook", nil)
		req.SetPathValue("type", "webhook")
		rec := httptest.NewRecorder()

		h.ListRecent(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "list_failed")
	})
}
