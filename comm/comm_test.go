package comm_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beamline-tools/newportxps/comm"
)

func tcpEchoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err, "could not listen")
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() { io.Copy(conn, conn) }()
		}
	}()
	return ln.Addr().String()
}

func dialMaker(addr string) comm.CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", addr)
	}
}

func TestPoolGetToCapacity(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(3, time.Second, dialMaker(addr))
	for i := 0; i < 3; i++ {
		conn, err := pool.Get()
		require.NoError(t, err)
		require.NotNil(t, conn)
	}
	require.Equal(t, 3, pool.Active())
}

func TestPoolReusesReturnedConnections(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(1, time.Minute, dialMaker(addr))
	conn, err := pool.Get()
	require.NoError(t, err)
	pool.Put(conn)
	conn2, err := pool.Get()
	require.NoError(t, err)
	require.Equal(t, conn, conn2)
	require.Equal(t, 1, pool.Size())
}

func TestPoolBlocksWhenExhausted(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(2, time.Second, dialMaker(addr))
	held := make([]io.ReadWriter, 0, 2)
	for i := 0; i < 2; i++ {
		rw, err := pool.Get()
		require.NoError(t, err)
		held = append(held, rw)
	}
	extra := make(chan io.ReadWriter, 1)
	go func() {
		rw, _ := pool.Get()
		extra <- rw
	}()
	select {
	case <-extra:
		t.Fatal("pool gave out more connections than its capacity")
	case <-time.After(100 * time.Millisecond):
	}
	// returning one should unblock the waiter
	pool.Put(held[0])
	select {
	case <-extra:
	case <-time.After(time.Second):
		t.Fatal("pool did not hand the returned connection to the waiter")
	}
}

func TestPoolDestroyShrinksLease(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(1, time.Second, dialMaker(addr))
	conn, err := pool.Get()
	require.NoError(t, err)
	pool.Destroy(conn)
	require.Equal(t, 0, pool.Size())
	// a fresh connection should be made after a destroy
	conn, err = pool.Get()
	require.NoError(t, err)
	require.NotNil(t, conn)
}

func TestPoolEchoRoundTrip(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(1, time.Second, comm.BackingOffTCPConnMaker(addr, time.Second))
	conn, err := pool.Get()
	require.NoError(t, err)
	defer pool.ReturnWithError(conn, err)
	wrap, err := comm.NewTimeout(conn, time.Second)
	require.NoError(t, err)
	_, err = io.WriteString(wrap, "ping")
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(wrap, buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf))
}
