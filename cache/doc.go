// Package cache memoizes functional adapters and the lookups that feed them.
//
// # Overview
//
// The package exports:
//
//   - Key and KeyBuilder: the parameter key of an adapter request
//   - CacheManager: lifetime-partitioned storage for descriptors, handles and adapters
//   - CacheService: a sturdyc backed read-through cache for member resolution
//   - Config: settings for both, loadable from TOML
//
// # Keys
//
// A key names the target interface, the serializable flag, marker and bridge
// types, and the captured values. Its fingerprint is built by the default key
// serializer:
//
//	key := cache.NewKeyBuilder(supplierType).
//		Capture(receiver).
//		Serializable(true).
//		Build()
//
// Captured values with reference semantics (pointers, maps, chans, funcs) are
// keyed by identity, so wrapping the same method around two receivers never
// returns the same adapter. Other values are keyed by content and typed tokens,
// so 1 and "1" never collide.
//
// # Lifetime partitions
//
// NewCacheManager routes every entry by the scope that declares it:
//
//   - immortal scopes (the anchors, the home scope and its ancestors) share one
//     partition that lives as long as the manager
//   - each ephemeral scope gets its own partition, dropped when the scope is
//     closed or becomes unreachable
//   - hidden types go to a standalone partition keyed weakly by type
//
// Cached values never reference their scope, so caching an adapter does not
// keep a plugin scope alive. Adapters themselves are held weakly: an adapter
// no caller references is dropped along with the values it captured. Failed
// or panicking loads are never cached.
//
// NewNoopCacheManager stores nothing and is meant for tests and for turning
// caching off through Config.Disabled.
//
// # Configuration
//
//	cfg, err := cache.LoadConfig("cache.toml")
//	if err != nil {
//		return err
//	}
//	svc, err := cache.NewCacheService(cfg)
//
// Durations are TOML strings such as "5m".
package cache
