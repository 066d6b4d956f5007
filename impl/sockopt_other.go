//go:build !unix

package impl

import "syscall"

func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
