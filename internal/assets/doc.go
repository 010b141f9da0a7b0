// Package assets stores uploaded image files on the local filesystem under
// server-generated names (uuid + original extension, lowercased).
//
// Saves are strict because a database row will reference the result; removes
// are best-effort because the row is already gone and a leftover file is
// merely orphaned. The storyboard sweep command reconciles orphans offline.
package assets
