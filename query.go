package sqlbus

import "strings"

// QueryType classifies a Query as a read or a write, which determines which
// socket it travels over.
type QueryType uint8

const (
	Read QueryType = iota
	Write
)

func (t QueryType) String() string {
	if t == Write {
		return "write"
	}
	return "read"
}

// Query is a single request/response unit submitted by a caller and carried
// through the registry and pump to the wire and back.
//
// MessageID is assigned by the client when the query is submitted and is
// the sole correlation key used to match a response to its waiter; it is
// unique among all currently-pending queries of one Client instance.
type Query struct {
	Database  string
	Statement string
	Type      QueryType
	MessageID uint32

	Rows    []string
	Success bool
	Err     string
}

// classifyStatement decides whether statement is a write by a crude,
// case-sensitive substring search for INSERT/UPDATE/DELETE, including its
// known false positives (e.g. "SELECT * FROM deletes") and false negatives
// (lowercase "insert"). It is not "fixed" here; callers that need more
// accurate classification should pre-route accordingly.
func classifyStatement(statement string) QueryType {
	if strings.Contains(statement, "INSERT") ||
		strings.Contains(statement, "UPDATE") ||
		strings.Contains(statement, "DELETE") {
		return Write
	}
	return Read
}

// NewQuery builds a Query with its type classified from statement. MessageID
// is left zero; the client assigns it on submission.
func NewQuery(database, statement string) Query {
	return Query{
		Database:  database,
		Statement: statement,
		Type:      classifyStatement(statement),
	}
}
