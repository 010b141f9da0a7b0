// Package web holds the embedded single page frontend served by the
// storyboard daemon.
package web

import "embed"

//go:embed index.html static
var FS embed.FS
