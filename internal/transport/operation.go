package transport

import "net/http"

// Operation is a logical feed operation.
type Operation int

const (
	// OpQuery reads a feed or entry.
	OpQuery Operation = iota
	// OpInsert creates an entry in a feed.
	OpInsert
	// OpUpdate replaces an entry at its edit URL.
	OpUpdate
	// OpDelete removes an entry at its edit URL.
	OpDelete
)

// AtomContentType is sent with every request carrying an entry document.
const AtomContentType = "application/atom+xml"

const methodOverrideHeader = "X-HTTP-Method-Override"

func (o Operation) String() string {
	switch o {
	case OpQuery:
		return "query"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// method returns the HTTP method and method override for the operation.
func (o Operation) method() (method, override string) {
	switch o {
	case OpInsert:
		return http.MethodPost, ""
	case OpUpdate:
		return http.MethodPost, http.MethodPut
	case OpDelete:
		return http.MethodPost, http.MethodDelete
	default:
		return http.MethodGet, ""
	}
}

func (o Operation) hasBody() bool {
	return o != OpQuery
}
