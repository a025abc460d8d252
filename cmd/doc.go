// Package cmd implements the command-line interface for gcalfeed.
//
// This package provides the following commands:
//   - calendars: List the calendars of the authenticated user
//   - events: Query a calendar feed, optionally polling for changes
//   - add: Create an event
//   - delete: Delete an event by its edit URL
//   - authsub: Request, exchange, revoke and inspect AuthSub tokens
//   - version: Display version information
//
// Credentials, proxy and feed URLs come from the YAML file given with
// --config and from GCAL_* environment variables.
package cmd
