// Package server exposes the feed client's Prometheus metrics on a dedicated
// listener while a long-running command such as "events --follow" is active.
package server
