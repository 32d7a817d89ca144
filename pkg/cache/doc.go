// Package cache provides the read-through cache used by every read endpoint.
//
// The cache service sits on a Store with a TTL fixed per instance:
//
// - MemoryStore keeps entries in process (sturdyc) for single-instance deployments
// - RedisStore shares entries between instances
// - Reads degrade to "always miss" when the store fails
// - Concurrent misses on one key can share a computation (single-flight)
// - Entries are invalidated by exact key, by prefix or by tag
//
// # Basic Usage
//
//	store, err := cache.NewMemoryStore(cache.DefaultMemoryConfig())
//	if err != nil {
//		return err
//	}
//	c := cache.New(store, cache.DefaultConfig(), logger)
//
//	key := cache.CacheKey{
//		Family: cache.FamilyPRs,
//		UserID: userID,
//		Params: []cache.Param{cache.P("exercise", exerciseID), cache.P("unit", unit)},
//	}
//	summary, err := cache.GetOrSet(ctx, c, key, func(ctx context.Context) (records.Summary, error) {
//		sets, err := repo.ListSets(ctx, filter)
//		if err != nil {
//			return records.Summary{}, err
//		}
//		return records.Compute(sets), nil
//	})
//
// # Keys
//
// A key is the family, the user and seance scope, then every parameter that
// changes the result in a fixed order. Missing parameters keep their slot
// with an empty value:
//
//	prs_user=42:seance=:exercise=squat:unit=:from=:to=
//
// Each written entry is also registered under tags derived from its key
// (family, family+user, seance) plus any extra labels the read path sets.
//
// # Invalidation
//
// Writes go through an Invalidator, which maps a write event to every read
// shape it can change:
//
//	inv := cache.NewInvalidator(c, logger)
//	inv.Sets(ctx, userID)                       // a set was recorded
//	inv.Seance(ctx, userID, seanceID)           // a seance was created or deleted
//	inv.User(ctx, userID)                       // a profile changed
//	inv.CommentsAndReactions(ctx, seanceID, "") // a comment or reaction was added
//
// Invalidation is best effort: failures are logged and entries then live until
// their TTL expires.
//
// # Metrics
//
//   - workout_cache_hits_total{family}
//   - workout_cache_misses_total{family}
//   - workout_cache_errors_total{operation}
//   - workout_cache_invalidations_total{kind}
//   - workout_cache_compute_duration_seconds{family}
package cache
