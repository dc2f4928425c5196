// Package auth provides authentication middleware for the QC server.
//
// APIKey(mode, header, key) returns an HTTP middleware that validates the API
// key from the named request header. Browsers cannot set headers on WebSocket
// upgrades, so the key is also accepted from the api_key query parameter.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). A missing or incorrect key gets a
// 401 with a JSON error body.
package auth
