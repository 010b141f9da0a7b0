package catalog

import "errors"

// ErrImageNotFound is returned by image operations when the referenced image
// id does not exist. Images are the only entity whose absence is a hard error;
// script and sentence updates and deletes succeed as no-ops on unknown ids.
var ErrImageNotFound = errors.New("image not found")

// ErrSentenceNotFound is returned when an upload targets a sentence id that
// does not exist.
var ErrSentenceNotFound = errors.New("sentence not found")
