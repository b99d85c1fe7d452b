package broker

import "errors"

var (
	ErrBrokerClosed         = errors.New("broker closed")
	ErrUnknownConnection    = errors.New("unknown connection")
	ErrConnectionClosed     = errors.New("connection closed")
	ErrIdentityAlreadyBound = errors.New("identity already bound")
	ErrInvalidIdentity      = errors.New("invalid identity")
	ErrForbiddenTopic       = errors.New("forbidden topic")
	ErrInvalidTopic         = errors.New("invalid topic")
)
