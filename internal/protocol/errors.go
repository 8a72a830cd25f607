package protocol

import "errors"

var ErrNoType = errors.New("frame has no type")
