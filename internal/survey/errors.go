package survey

import (
	"fmt"
	"strings"
)

// SchemaError reports a construct definition that does not fit the dataset
// schema. It is a configuration error and aborts the render.
type SchemaError struct {
	Construct string
	Field     string
	Reason    string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error:")
	if e.Construct != "" {
		fmt.Fprintf(&b, " construct %q", e.Construct)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	if e.Construct != "" || e.Field != "" {
		b.WriteString(":")
	}
	b.WriteString(" ")
	b.WriteString(e.Reason)
	return b.String()
}

// InsufficientDataError reports an aggregation that has too little data to
// produce a meaningful statistic.
type InsufficientDataError struct {
	Operation string
	Fields    []string
	Have      int
	Need      int
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("insufficient data for %s(%s)", e.Operation, strings.Join(e.Fields, ", "))
	if e.Reason != "" {
		return msg + ": " + e.Reason
	}
	return fmt.Sprintf("%s: have %d, need %d", msg, e.Have, e.Need)
}

// DataUnavailableError wraps a failure of the data source.
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable from %s: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}
