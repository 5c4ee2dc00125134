package domain

import "errors"

var ErrIdentityExists = errors.New("identity already registered")
var ErrIdentityNotFound = errors.New("identity not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrStoreNotFound = errors.New("store not found")
var ErrForbidden = errors.New("access forbidden")
var ErrSessionNotFound = errors.New("session not found")
