package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"text/tabwriter"
)

// OutputMode is the process-wide default mode set from the --json flag.
type OutputMode string

const (
	OutputModeText OutputMode = "text"
	OutputModeJSON OutputMode = "json"
)

var outputMode atomic.Value

// SetOutputMode switches the process-wide default between text and JSON.
func SetOutputMode(jsonMode bool) {
	if jsonMode {
		outputMode.Store(OutputModeJSON)
	} else {
		outputMode.Store(OutputModeText)
	}
}

// GetOutputMode returns the process-wide mode, defaulting to text.
func GetOutputMode() OutputMode {
	if v, ok := outputMode.Load().(OutputMode); ok {
		return v
	}
	return OutputModeText
}

// IsJSON reports whether the process-wide mode is JSON.
func IsJSON() bool {
	return GetOutputMode() == OutputModeJSON
}

// ErrorPayload is the JSON shape of a reported error.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputJSON writes v as indented JSON to stdout.
func OutputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// OutputJSONError writes err as an ErrorPayload to stdout and returns nil so
// callers can use it as a terminal statement.
func OutputJSONError(err error, code int) error {
	return OutputJSON(ErrorPayload{
		Error:   "error",
		Message: err.Error(),
		Details: map[string]any{"code": code},
	})
}

// OutputTable writes an aligned table to stderr.
func OutputTable(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

// OutputList writes one item per line to stderr.
func OutputList(items []string) {
	for _, item := range items {
		fmt.Fprintln(os.Stderr, item)
	}
}
