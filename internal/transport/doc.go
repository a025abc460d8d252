// Package transport executes authenticated feed requests with session
// affinity.
//
// A Transport lazily obtains an Authorization header value on first use and
// caches it for its lifetime. When the service answers with a 302 redirect
// whose Location carries a gsessionid query parameter and the response sets a
// cookie, both are stored and the request is retried once. Every later
// request carries the cookie and session id. Redirects missing either piece
// are logged and returned to the caller unchanged.
//
// Logical operations map onto the wire as follows:
//
//	Query   GET
//	Insert  POST, Content-Type: application/atom+xml
//	Update  POST, X-HTTP-Method-Override: PUT
//	Delete  POST, X-HTTP-Method-Override: DELETE
//
// A Transport is not safe for concurrent use.
package transport
