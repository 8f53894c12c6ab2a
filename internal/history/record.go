package history

// Record is one entry of the local notification history.
//
// ID is the stringified unix-milli creation time; Timestamp is the same
// value numerically. Dedup never looks at either, only at content.
type Record struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	Timestamp int64             `json:"timestamp"`
}

// Incoming is the provider-side view of a push message: the optional
// notification-block fields plus the data payload.
type Incoming struct {
	Title string
	Body  string
	Data  map[string]string
}

// contentTombstone suppresses future records matching (title, body)
// regardless of data payload or id.
type contentTombstone struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Outcome classifies a Save.
type Outcome int

const (
	Stored Outcome = iota
	SuppressedDuplicate
	SuppressedDeleted
)

func (o Outcome) String() string {
	switch o {
	case Stored:
		return "stored"
	case SuppressedDuplicate:
		return "suppressed_duplicate"
	case SuppressedDeleted:
		return "suppressed_deleted"
	default:
		return "unknown"
	}
}

// Filter selects records for deletion. Nil fields are "not supplied".
// ID and content criteria are evaluated independently per record, with the
// id match taking precedence for any given record.
type Filter struct {
	ID    *string `json:"id,omitempty"`
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

func (f Filter) hasID() bool      { return f.ID != nil }
func (f Filter) hasContent() bool { return f.Title != nil && f.Body != nil }
