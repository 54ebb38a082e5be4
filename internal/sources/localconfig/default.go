package localconfig

import (
	_ "embed"
	"sync"
)

//go:embed endpoints.yaml
var defaultDocument []byte

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the table built from the bundled endpoints.yaml.
// The bundled document is part of the binary, so a parse failure panics.
func Default() *Table {
	defaultOnce.Do(func() {
		table, err := Parse(defaultDocument)
		if err != nil {
			panic("localconfig: bundled endpoints.yaml: " + err.Error())
		}
		defaultTable = table
	})
	return defaultTable
}
