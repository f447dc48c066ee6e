// Package wpapi is the JSON-over-HTTPS boundary to the WordPress backend.
//
// Two quirks of that backend shape this package. Pretty-permalink REST routes
// may be unavailable depending on site configuration, in which case the same
// route is reachable through the ?rest_route= query-string form; requests
// retry that form exactly once when the primary route answers with a
// rest_no_route error. And fatal PHP errors arrive as HTML-wrapped 5xx pages;
// their markup is stripped to plain text before the message reaches a caller.
package wpapi
