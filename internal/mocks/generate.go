// Package mocks provides mock implementations for testing the verify-api job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
// This creates MockJobRepository with methods for all JobRepository interface methods:
// Create, GetByID, ReserveNext, WaitForNotification, Heartbeat, Complete, Fail, Stats, ListRecentByType, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/roadsideiq/verify-api/internal/core JobRepository

// Generate mock for the enqueue-side JobQueue seam.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_queue_mock.go github.com/roadsideiq/verify-api/internal/core JobQueue

// Generate mock for UserRepository interface from internal/core package.
// This creates MockUserRepository with methods: Create, GetByUsername
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/roadsideiq/verify-api/internal/core UserRepository

// Generate mock for VerificationStatusRepository interface from internal/core package.
// This creates MockVerificationStatusRepository with methods: Set, Get, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=verification_status_repository_mock.go github.com/roadsideiq/verify-api/internal/core VerificationStatusRepository

// Generate mock for VerificationProvider interface from internal/core package.
// This creates MockVerificationProvider with a Verify method.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=verification_provider_mock.go github.com/roadsideiq/verify-api/internal/core VerificationProvider
