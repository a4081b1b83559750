// Package mocks provides gomock implementations of the engine's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	ex := mocks.NewMockExtractor(ctrl)
//	ex.EXPECT().Platform().Return(model.PlatformYouTube).AnyTimes()
//	ex.EXPECT().FetchInfo(gomock.Any(), url).Return(info, nil)
package mocks

// MockExtractor: Platform, FetchInfo, FetchMedia
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=extractor_mock.go github.com/target/mediafetch/internal/core Extractor

// MockCacheRepository: Set, Get, Delete, Health
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/target/mediafetch/internal/core CacheRepository

// MockArtifactSink: ReserveName, Exists, Contains, Open, Remove
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=artifact_sink_mock.go github.com/target/mediafetch/internal/core ArtifactSink
