package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// writeOutput encodes v to w as json or yaml.
func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unknown output format %q (want json or yaml)", format)
	}
}
