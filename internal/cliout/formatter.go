// Package cliout renders genehubctl results for humans and scripts.
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Write renders v in the requested format. text falls back to the JSON
// rendering until a tabular writer slots in here.
func Write(w io.Writer, format Format, v any) error {
	switch format {
	case FormatText:
		fallthrough
	case FormatJSON, "":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
