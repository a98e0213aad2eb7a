package transport_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/chyan26/raptorServ/internal/transport"
)

// lineEchoServer answers every terminated request with a fixed reply,
// mimicking the ISU's "send a command, get one terminated line back"
// protocol closely enough to exercise RemoteDevice end to end.
func lineEchoServer(t *testing.T, reply string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			if _, err := r.ReadBytes('\r'); err != nil {
				return
			}
			if _, err := conn.Write([]byte(reply + "\r")); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func TestRemoteDeviceSendRecvRoundTrip(t *testing.T) {
	addr := lineEchoServer(t, "5.0,-3.0")
	rd := transport.NewRemoteDevice(addr, false, nil, nil)
	rd.Timeout = time.Second
	if err := rd.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rd.Close()

	resp, err := rd.SendRecv([]byte("POS?"))
	if err != nil {
		t.Fatalf("sendrecv: %v", err)
	}
	if string(resp) != "5.0,-3.0" {
		t.Fatalf("got %q, want %q", resp, "5.0,-3.0")
	}
}

func TestRemoteDeviceRecvWithoutOpenFails(t *testing.T) {
	rd := transport.NewRemoteDevice("127.0.0.1:0", false, nil, nil)
	if _, err := rd.SendRecv([]byte("POS?")); err != transport.ErrNotConnected {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
}

func TestRemoteDeviceOpenIsIdempotent(t *testing.T) {
	addr := lineEchoServer(t, "ok")
	rd := transport.NewRemoteDevice(addr, false, nil, nil)
	rd.Timeout = time.Second
	if err := rd.Open(); err != nil {
		t.Fatalf("first open: %v", err)
	}
	conn := rd.Conn
	if err := rd.Open(); err != nil {
		t.Fatalf("second open: %v", err)
	}
	if rd.Conn != conn {
		t.Fatal("expected Open on an already-connected device to be a no-op")
	}
}
