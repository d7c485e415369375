package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// printer writes either a JSON document or formatted text lines.
type printer struct {
	format string
	w      io.Writer
}

func (p printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p printer) linef(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p printer) isJSON() bool { return p.format == "json" }
