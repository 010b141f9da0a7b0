// Package server exposes the storyboard HTTP surface: the JSON API under
// /api/, uploaded images under /uploads/, and the embedded frontend at the
// root. Write endpoints keep the asset directory in sync with the catalog by
// deleting files for the rows they remove.
package server
