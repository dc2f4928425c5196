// Package api implements the HTTP REST API for the QC server.
//
// New(registry, opts) returns an http.Handler (gorilla/mux) that serves:
//
//	GET    /api/v1/floors                                all floors with windows
//	POST   /api/v1/floors                                add a floor {name?}
//	GET    /api/v1/floors/{floorID}                      one floor
//	PATCH  /api/v1/floors/{floorID}                      rename {name}
//	DELETE /api/v1/floors/{floorID}                      remove; the last floor is replaced
//	GET    /api/v1/floors/{floorID}/windows              windows of a floor
//	POST   /api/v1/floors/{floorID}/windows              record a window
//	GET    /api/v1/floors/{floorID}/windows/{windowID}   one window
//	PATCH  /api/v1/floors/{floorID}/windows/{windowID}   partial update, re-evaluated
//	DELETE /api/v1/floors/{floorID}/windows/{windowID}   remove a window
//	GET    /api/v1/selection, PUT /api/v1/selection      current floor index
//	POST   /api/v1/clear                                 discard everything
//	GET    /api/v1/summary                               project and per-floor roll-up
//	GET    /api/v1/charts/floors                         pass/warning/fail per floor
//	GET    /api/v1/charts/distribution                   project status distribution
//	GET    /api/v1/project, PUT /api/v1/project          building metadata
//	GET    /api/v1/settings, PUT /api/v1/settings        warning multiplier, default limit
//	GET    /api/v1/export?format=json|csv                export record set
//	POST   /api/v1/evaluate                              stateless preview of one window
//	GET    /api/v1/alerts                                firing and recently resolved alerts
//	GET    /api/v1/events?limit=N                        recent QC events, newest first
//
// Unknown floors or windows give 404, validation failures 422, malformed
// bodies 400. Every successful mutation publishes a QC event, re-evaluates
// alert rules and notifies the WebSocket hub.
package api
