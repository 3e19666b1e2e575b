package display

import (
	"encoding/json"
	"os"
)

// MarshalJSON marshals JSON pretty-printed for a terminal and compact when
// stdout is piped, so `typeglyph annotate --json | jq` gets one line per result
func MarshalJSON(v interface{}) ([]byte, error) {
	if !stdoutIsTerminal() {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

func stdoutIsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
