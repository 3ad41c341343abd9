// Package fetch turns a source into raw text.
//
// Inline text passes straight through. URLs are tried against an ordered
// chain of extraction methods, each bounded by its own timeout:
//
//   - article: fetches the page and renders the main editorial container
//   - rendered: asks a prerender service for the JavaScript-rendered page
//   - generic: strips all markup from the raw page
//
// PDF responses are recognized by any HTTP method and read through their
// text layer. The first method returning enough text wins; when all fail
// the caller receives a *core.FetchError describing every attempt.
//
// Requests share one rate limiter so a single host is not hammered while
// methods fall through.
package fetch
