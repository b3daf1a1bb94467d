package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Stdout receives JSON results. Tests may replace it.
var Stdout io.Writer = os.Stdout

// JSONResult is the envelope for every --json result.
type JSONResult struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // command-specific payload
	Error  string      `json:"error,omitempty"` // error message, if any
}

// JSON writes a successful result.
func JSON(data interface{}) {
	writeJSON(JSONResult{Status: "ok", Data: data})
}

// JSONError writes an error result.
func JSONError(err error) {
	writeJSON(JSONResult{Status: "error", Error: err.Error()})
}

// JSONErrorData writes an error result that still carries a payload, for
// commands such as doctor whose report is useful even when it fails.
func JSONErrorData(msg string, data interface{}) {
	writeJSON(JSONResult{Status: "error", Data: data, Error: msg})
}

func writeJSON(result JSONResult) {
	enc := json.NewEncoder(Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "error encoding JSON output: %v\n", err)
	}
}
