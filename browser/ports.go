package browser

import (
	"fmt"
	"net"
)

// probePort binds an ephemeral loopback port and returns it with the open listener.
func probePort() (int, net.Listener, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(LoopbackHost, "0"))
	if err != nil {
		return 0, nil, fmt.Errorf("browser: probe free port: %w", err)
	}
	return ln.Addr().(*net.TCPAddr).Port, ln, nil
}

// freePorts returns two distinct free ports. Both listeners are held until both ports are
// known and then released, so the ports may be taken by someone else before use.
func freePorts() (playwright, novnc int, err error) {
	playwright, pwLn, err := probePort()
	if err != nil {
		return 0, 0, err
	}
	defer pwLn.Close()
	novnc, vncLn, err := probePort()
	if err != nil {
		return 0, 0, err
	}
	defer vncLn.Close()
	return playwright, novnc, nil
}
