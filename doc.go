// Package visualping is a client for the Visualping monitoring-job API.
//
// A Client logs in with an account email and password and keeps the
// resulting token pair in memory:
//
//   - The id (access) token is used for 23 hours, then renewed with the
//     refresh token.
//   - The refresh token is used for 29 days, then a full password login is
//     performed again.
//   - Concurrent requests that find the session stale share one in-flight
//     login and all observe its outcome. A caller whose context ends stops
//     waiting; the login carries on and still updates the session.
//
// Every API call goes through AuthenticatedRequest, which injects the JSON
// content type and bearer token, bounds each HTTP exchange by the client
// timeout and retries transient failures (no response, 429, 5xx) with
// doubling backoff. A timeout surfaces as a 408 *APIError and is not retried.
//
// Typical usage:
//
//	client := visualping.New(email, password,
//	    visualping.WithMaxRetries(2),
//	    visualping.WithSessionStore(store),
//	)
//	user, err := client.DescribeUser(ctx)
//	page, err := client.ListJobs(ctx, visualping.JobListOptions{WorkspaceID: user.DefaultWorkspaceID()})
//
// Credentials can be persisted between processes through a SessionStore;
// see the store/boltstore and store/redisstore packages.
// Logging is off unless a Logger is supplied and debug is enabled
// (WithSimpleLogger / WithDebugConfig).
package visualping
