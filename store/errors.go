package store

import "errors"

// ErrIndexRequired is returned by Invoke when an indexed modifier is invoked
// without an index.
var ErrIndexRequired = errors.New("indexed modifier needs an index")
