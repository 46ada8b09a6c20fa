// Package healthcheck periodically pings the blog repository and keeps
// the latest result for the /health endpoint.
package healthcheck
