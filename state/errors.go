package state

import "errors"

var (
	ErrDuplicatedLink   = errors.New("duplicated link")
	ErrRouterPortsFull  = errors.New("router ports are full")
	ErrLinkNotAvailable = errors.New("link not available")
	ErrNoPath           = errors.New("no path")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnexpectedPacket = errors.New("unexpected packet")
)
