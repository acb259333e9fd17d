// Package pagination fetches a range of catalog listing pages in parallel.
//
// The catalog API reports no total page count, so callers name the range:
//
//	bf := pagination.NewBatchFetcher(fetcher.New(c), pagination.DefaultConfig())
//	pages, err := bf.FetchPages(ctx, 1, 5)
//
// The batch fetcher:
//   - Validates the range against MaxPages
//   - Spawns a bounded worker pool (default 4 workers)
//   - Applies a per-page timeout
//   - Cancels outstanding pages on the first failure and returns no partial map
//
// Request pacing is left to the underlying client, so the pool size bounds
// concurrency but not request rate.
package pagination
