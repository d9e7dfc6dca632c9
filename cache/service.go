package cache

import (
	"context"
	"fmt"
	"reflect"
)

// KeySerializer builds a cache key from a prefix and arbitrary values.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(prefix string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes read-through caching for lookups that are cheap to redo
// but worth sharing, such as resolving serialized member references.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("cache: entry %q holds %T", key, result)
	}
	return typed, nil
}

type noopCacheService struct{}

// NewNoopCacheService returns a CacheService that never stores anything.
func NewNoopCacheService() CacheService {
	return noopCacheService{}
}

func (noopCacheService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	fv := reflect.ValueOf(fetchFn)
	if fetchFn == nil || fv.Kind() != reflect.Func || fv.Type().NumIn() != 1 || fv.Type().NumOut() != 2 {
		return nil, fmt.Errorf("cache: fetchFn for %q must be func(context.Context) (T, error), got %T", key, fetchFn)
	}
	out := fv.Call([]reflect.Value{reflect.ValueOf(&ctx).Elem()})
	if err, _ := out[1].Interface().(error); err != nil {
		return nil, err
	}
	return out[0].Interface(), nil
}

func (noopCacheService) Delete(context.Context, string) error { return nil }

func (noopCacheService) Clear(context.Context) error { return nil }
