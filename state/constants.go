package state

import (
	"math"
	"time"
)

const (
	// MaxPorts is the number of link slots a router owns
	MaxPorts = 4
	// InitialSeqno is the sequence number of an LSA that has never been announced
	InitialSeqno = math.MinInt32
	// SelfPort marks the placeholder link an LSA keeps to its own origin
	SelfPort = -1
)

var (
	DialTimeout = time.Second * 5
	// PeerDownTTL is how long a failed peer stays quiet in the logs before it is reported again
	PeerDownTTL = time.Second * 10

	// default port
	DefaultPort = 57175
)

// SlowDispatch is how long a function may hold the main loop before it is reported
var SlowDispatch = time.Second
