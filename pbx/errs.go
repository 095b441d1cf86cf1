package pbx

import "errors"

var ErrParse = errors.New("parse error")
