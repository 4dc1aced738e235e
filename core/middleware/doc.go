// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting the sync trigger endpoints.
//   - rayid: assigns every request an ID, stored in the context locals and
//     echoed in the X-Ray-ID response header. logger.WithRayID reads it back.
package middleware
