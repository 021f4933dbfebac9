// Package auth implements bearer token authentication for the HTTP API.
//
// Tokens are JWTs signed with HS256 or RS256 carrying sub, roles and scopes
// claims. viewer tokens read unit state and subscribe to telemetry; operator
// tokens may also command units and inject faults.
package auth
