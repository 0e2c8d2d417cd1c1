// Package httpapi exposes resources over HTTP.
//
// Routes:
//
//	POST  /api/resources                          create (multipart or JSON)
//	PATCH /api/resources/{id}                     edit (multipart or JSON)
//	GET   /api/resources/{id}                     record
//	GET   /api/resources/{id}/download            302 to the stored file
//	GET   /api/resources/{id}/download/{filename} 302 to a named file
//	GET   /health/live, /health/ready             probes
//	GET   /metrics                                Prometheus exposition
//
// Mutating routes require a bearer token when a JWT secret is configured.
package httpapi
