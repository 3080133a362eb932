package storage

import "errors"

// errNoReplaceUnsupported means the platform or filesystem cannot rename
// without replacing, and the caller has to fall back to a plain rename.
var errNoReplaceUnsupported = errors.New("rename without replace not supported")
