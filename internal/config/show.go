package config

import (
	"bytes"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// RenderEffective writes the configuration left after every override layer
// as TOML, so the output can be pasted back into a config file. Optional
// keys that are unset are omitted.
func RenderEffective(r *Resolved, w io.Writer) error {
	var buf bytes.Buffer

	source := r.ConfigPath
	if source == "" {
		source = "defaults"
	}

	fmt.Fprintf(&buf, "# Effective configuration (%s)\n", source)

	if r.Auth.ClientID == "" {
		buf.WriteString("# auth.client_id is not set; login is unavailable\n")
	}

	buf.WriteString("\n")

	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(r.Config); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	fmt.Fprintf(&buf, "\n# token file: %s\n# state db:   %s\n", r.TokenPath, r.StatePath)

	_, err := w.Write(buf.Bytes())

	return err
}
