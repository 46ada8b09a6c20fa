// Package strategy defines the request strategy contract and the blog's
// concrete strategies:
//
//   - list-posts: published posts, newest first
//   - show-post: a single post with its comments
//   - new-post, create-post, edit-post, update-post, delete-post: post administration
//   - create-comment, delete-comment: comment handling
//   - feed: RSS feed of recent posts
//
// Every strategy is composed from Base, which carries the shared
// blog.Repository. Timestamps are rendered and parsed with DateFormat.
package strategy
