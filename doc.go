// Package swr is a stale-while-revalidate data-fetching coordinator.
//
// Given a logical key and a fetcher, a Coordinator keeps a cached record,
// decides when to refresh it, deduplicates concurrent refreshes of the
// same key, reconciles races between in-flight fetches and out-of-band
// mutations, and notifies subscriptions only when a field they actually
// read changed.
//
// Example:
//
//	coord := swr.New()
//	defer coord.Close()
//
//	fetchUser := func(ctx context.Context, arg any) (any, error) {
//		return loadUser(ctx, arg.(string))
//	}
//
//	sub, _ := coord.Subscribe(ctx, "user:42", fetchUser, swr.Config{
//		RefreshInterval: swr.Every(30 * time.Second),
//	}, func(rec swr.Record) {
//		render(rec)
//	})
//	defer sub.Close()
//
//	user, ok := sub.Data()
//
// Out-of-band writes go through Mutate, which wins over any overlapping
// fetch:
//
//	coord.MutateValue(ctx, "user:42", updated, swr.MutateOptions{})
package swr
