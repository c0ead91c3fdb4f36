package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tenderprice/tenderprice/internal/shared"
)

// PreviewStore keeps parsed previews in Redis between the preview and commit
// calls. Entries expire after the configured TTL; an expired preview simply
// requires a fresh upload.
type PreviewStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPreviewStore constructs the store.
func NewPreviewStore(client *redis.Client, ttl time.Duration) *PreviewStore {
	return &PreviewStore{client: client, ttl: ttl}
}

func previewKey(token string) string {
	return "tenderprice:preview:" + token
}

// Put stores a preview and returns its opaque token.
func (s *PreviewStore) Put(ctx context.Context, preview PreviewResult) (string, error) {
	data, err := json.Marshal(preview)
	if err != nil {
		return "", fmt.Errorf("ingest: marshal preview: %w", err)
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, previewKey(token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("ingest: store preview: %w", err)
	}
	return token, nil
}

// Get loads a preview by token; ErrNotFound when the token is unknown or
// expired.
func (s *PreviewStore) Get(ctx context.Context, token string) (PreviewResult, error) {
	data, err := s.client.Get(ctx, previewKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PreviewResult{}, fmt.Errorf("%w: preview %s", shared.ErrNotFound, token)
	}
	if err != nil {
		return PreviewResult{}, fmt.Errorf("ingest: load preview: %w", err)
	}
	var preview PreviewResult
	if err := json.Unmarshal(data, &preview); err != nil {
		return PreviewResult{}, fmt.Errorf("ingest: decode preview: %w", err)
	}
	return preview, nil
}

// Delete removes a committed preview. Best effort; expiry covers the rest.
func (s *PreviewStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, previewKey(token)).Err()
}
