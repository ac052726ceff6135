package entities

import "fmt"

// Method selects how a statement is executed and what the result carries.
type Method string

const (
	// MethodRun executes for side effects and reports changes and last insert id.
	MethodRun Method = "run"
	// MethodAll collects every row.
	MethodAll Method = "all"
	// MethodGet collects at most the first row.
	MethodGet Method = "get"
	// MethodValues behaves like MethodAll. It exists so guest drivers can keep
	// their own method names.
	MethodValues Method = "values"
)

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	switch m {
	case MethodRun, MethodAll, MethodGet, MethodValues:
		return true
	default:
		return false
	}
}

// QueryPayload is a single statement sent by a guest.
type QueryPayload struct {
	SQL    string  `json:"sql" jsonschema:"required,description=SQL statement with ? placeholders"`
	Method Method  `json:"method" jsonschema:"required,enum=run,enum=all,enum=get,enum=values"`
	Params []Value `json:"params,omitempty" jsonschema:"description=Positional scalar parameters"`
}

// NewQuery builds a payload from plain Go scalars. It fails on any parameter
// outside the closed Value set.
func NewQuery(method Method, sql string, params ...any) (QueryPayload, error) {
	values := make([]Value, 0, len(params))
	for i, p := range params {
		v, err := ValueOf(p)
		if err != nil {
			return QueryPayload{}, fmt.Errorf("param %d: %w", i, err)
		}
		values = append(values, v)
	}
	return QueryPayload{SQL: sql, Method: method, Params: values}, nil
}

// ValueOf converts a Go scalar into a Value.
func ValueOf(p any) (Value, error) {
	switch x := p.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Blob(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported parameter type %T", p)
	}
}

// QueryResult is the outcome of one statement. Either the success fields or
// Error is populated, never both.
type QueryResult struct {
	LastInsertRowID *int64    `json:"last_insert_row_id,omitempty"`
	Changes         *int64    `json:"changes,omitempty"`
	Error           string    `json:"error,omitempty"`
	Rows            [][]Value `json:"rows"`
}

// QueryRunResult builds the result of a successful run.
func QueryRunResult(changes, lastInsertID int64) QueryResult {
	return QueryResult{Changes: &changes, LastInsertRowID: &lastInsertID}
}

// QueryRowsResult builds the result of a successful row query. A nil slice is
// normalised to empty so in-process callers can tell a row query from a run.
func QueryRowsResult(rows [][]Value) QueryResult {
	if rows == nil {
		rows = [][]Value{}
	}
	return QueryResult{Rows: rows}
}

// QueryErrorResult builds a recoverable error result.
func QueryErrorResult(err error) QueryResult {
	return QueryResult{Error: err.Error()}
}

// Failed reports whether the result carries an error.
func (r QueryResult) Failed() bool { return r.Error != "" }

// BatchPayload is an ordered list of statements executed in one transaction.
type BatchPayload struct {
	Queries []QueryPayload `json:"queries" jsonschema:"required"`
}

// BatchResult holds one QueryResult per statement of a committed batch.
type BatchResult struct {
	Results []QueryResult `json:"results"`
}
