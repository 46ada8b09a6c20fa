// Package blog defines the blog content model and the Repository contract
// that request strategies operate against. Implementations live under
// internal/repository.
package blog
