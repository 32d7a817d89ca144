// Package pagination slices list results into pages for the HTTP API.
//
// Page parameters come from the query string and are clamped rather than
// rejected, so a client asking for limit=10000 simply gets the maximum:
//
//	params := pagination.FromQuery(r.URL.Query())
//	page := pagination.Apply(sets, params)
//
// Params take part in cache keys, which is why they are plain comparable
// values with a stable zero.
package pagination
