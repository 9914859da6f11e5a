package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

// setJSON marshals value into the secret store under key.
func setJSON(ctx context.Context, store domain.SecretStore, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", domain.ErrDependency, key, err)
	}
	return store.Set(ctx, key, string(data), ttl)
}

// getJSON unmarshals the value under key into out. A missing key is
// reported through ok.
func getJSON(ctx context.Context, store domain.SecretStore, key string, out any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("%w: decoding %s: %v", domain.ErrDependency, key, err)
	}
	return true, nil
}
