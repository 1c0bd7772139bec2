package cache

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned by providers on a cache miss
var ErrNotFound = errors.New("not found in cache")

// Provider is an interface for getting and setting cached objects
type Provider interface {
	Get(ctx context.Context, key string) (data []byte, err error)
	Set(ctx context.Context, key string, data []byte) (err error)
	Shutdown()
}

// LoaderFunc is a function for loading data into a cache
type LoaderFunc func(ctx context.Context, key string) (data []byte, err error)

// Auto is a cache that automatically attempts to load objects if they don't exist
type Auto struct {
	Provider    Provider
	Loader      LoaderFunc
	lookupGroup singleflight.Group
}

// Get returns an object from the cache if it exists, otherwise it loads it
// into the cache and returns it. Concurrent misses for one key share a
// single load.
func (a *Auto) Get(ctx context.Context, key string) (data []byte, err error) {
	return a.GetOrLoad(ctx, key, a.Loader)
}

// GetOrLoad is Get with a loader for this call only
func (a *Auto) GetOrLoad(ctx context.Context, key string, loader LoaderFunc) (data []byte, err error) {
	data, err = a.Provider.Get(ctx, key)
	// a hit, or a provider failure other than a miss
	if !errors.Is(err, ErrNotFound) {
		return
	}

	v, err, _ := a.lookupGroup.Do(key, func() (interface{}, error) {
		data, err := loader(ctx, key)
		if err != nil {
			return nil, err
		}

		if err := a.Provider.Set(ctx, key, data); err != nil {
			return nil, err
		}

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	data, _ = v.([]byte)
	return data, nil
}
