// Package config loads the blog server configuration from config.yaml,
// a .env file and environment variables, and validates it. It covers the
// HTTP server, logging, the repository driver and its decorators, health
// checks, admin credentials, comment rate limits and the publisher job.
package config
