package model

import "errors"

var ErrNoRecord = errors.New("no record")
var ErrAlreadyExists = errors.New("entity already exists")
var ErrReadOnly = errors.New("event is read only")
var ErrUnauthorized = errors.New("unauthorized")
