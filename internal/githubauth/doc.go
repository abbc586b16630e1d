// Package githubauth resolves GitHub API credentials from token source
// declarations (env:NAME or file:/path) and well-known environment variables.
package githubauth
