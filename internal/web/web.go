// Package web holds the embedded DJ console page.
package web

import _ "embed"

//go:embed index.html
var IndexHTML []byte
