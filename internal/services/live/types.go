package livesvc

import (
	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
)

// BootstrapResult is the starting point for a fresh consumer. Cursor is the
// zero key (JSON null) when the collection is empty.
type BootstrapResult struct {
	Category string     `json:"category"`
	Cursor   cursor.Key `json:"cursor"`
	Empty    bool       `json:"empty"`
}

// TailRequest asks for records after Cursor. An empty Cursor asks for the
// current newest cursor without transferring records.
type TailRequest struct {
	Category string
	Cursor   string
	Limit    int
	Filter   string
}

// TailResponse is one page of a tail.
type TailResponse struct {
	Category   string        `json:"category"`
	Items      []event.Event `json:"items"`
	NextCursor cursor.Key    `json:"nextCursor"`
	Count      int           `json:"count"`
	// Scanned counts records read, including those a filter dropped.
	Scanned    int    `json:"scanned"`
	ServerTime string `json:"serverTime"`
	// Empty is set on cursor-less requests against an empty collection.
	Empty bool `json:"empty,omitempty"`
}

// DebugInfo summarises a category's backing collection.
type DebugInfo struct {
	Category   string     `json:"category"`
	Namespace  string     `json:"namespace"`
	Count      int64      `json:"countDocuments"`
	Newest     cursor.Key `json:"newestId"`
	Oldest     cursor.Key `json:"oldestId"`
	ServerTime string     `json:"serverTime"`
}
