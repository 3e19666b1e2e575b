package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/typeglyph/errors"
)

// OutputEnv selects JSON output for every command when set to "json"
const OutputEnv = "TYPEGLYPH_OUTPUT"

// ShouldOutputJSON determines if a command should output JSON based on flags
// and the TYPEGLYPH_OUTPUT environment variable
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return envWantsJSON()
	}

	// An explicit local flag wins either way
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}
	return envWantsJSON()
}

func envWantsJSON() bool {
	return strings.EqualFold(os.Getenv(OutputEnv), "json")
}

// OutputJSON marshals v with MarshalJSON and prints it to stdout
func OutputJSON(v interface{}) error {
	return WriteJSON(os.Stdout, v)
}

// WriteJSON marshals v with MarshalJSON and writes it to w
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
