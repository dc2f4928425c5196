// Package ws streams the project summary to browsers over WebSocket.
//
// The Hub sends the summary to a client as soon as it connects, then again on
// every broadcast tick and after every mutation reported through Notify. The
// api Handler calls Notify, so dashboards update without waiting for the tick.
//
// Message format:
//
//	{
//	  "event": "summary",
//	  "data":  { /* same schema as GET /api/v1/summary */ }
//	}
//
// The server mounts the hub at /ws/stream. Upgrades are limited to the
// configured CORS origins.
package ws
