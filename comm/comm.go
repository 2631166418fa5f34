/*Package comm provides connection management for communication with lab hardware.

Most consumers will create a Pool with a CreationFunc, Get a connection when
they need to talk to the device, and return it with Put or ReturnWithError.
The pool closes connections that sit idle and recreates them on demand, which
keeps controllers that dislike long-lived idle sockets happy.
*/
package comm

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
)

// ErrTimeoutUnsupported is generated when NewTimeout is used on a connection
// that has no deadline support
var ErrTimeoutUnsupported = errors.New("connection does not support deadlines")

// CreationFunc is a function which returns a new "connection" to something
// a closure should be used to encapsulate the variables and functions needed
type CreationFunc func() (io.ReadWriteCloser, error)

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

// BackingOffTCPConnMaker returns a CreationFunc which dials addr with an
// exponential backoff.  Connection refused is returned immediately; timeouts
// are retried until the backoff gives up.  Some devices do not like being
// connection thrashed, hence the backoff.
func BackingOffTCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var conn net.Conn
		wasTimeout := false
		op := func() error {
			var err error
			conn, err = TCPSetup(addr, timeout)
			if err != nil {
				errS := strings.ToLower(err.Error())
				if strings.Contains(errS, "refused") {
					return err
				}
				wasTimeout = true
				return nil
			}
			wasTimeout = false
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if err == nil && !wasTimeout {
			return conn, nil
		}
		if wasTimeout {
			return nil, errors.New("connection timeout to " + addr)
		}
		return nil, err
	}
}

type deadliner interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

type timeout struct {
	rw io.ReadWriter
	d  deadliner
	t  time.Duration
}

func (t timeout) Read(p []byte) (int, error) {
	t.d.SetReadDeadline(time.Now().Add(t.t))
	return t.rw.Read(p)
}

func (t timeout) Write(p []byte) (int, error) {
	t.d.SetWriteDeadline(time.Now().Add(t.t))
	return t.rw.Write(p)
}

// NewTimeout wraps a connection such that each Read or Write pushes the
// deadline forward by dur.  ErrTimeoutUnsupported is returned if the
// underlying connection has no deadline support.
func NewTimeout(rw io.ReadWriter, dur time.Duration) (io.ReadWriter, error) {
	d, ok := rw.(deadliner)
	if !ok {
		return rw, ErrTimeoutUnsupported
	}
	return timeout{rw: rw, d: d, t: dur}, nil
}

// Pool is a communication pool which holds one or more connections to a device
// that will be closed if they are not in use, and re-opened as needed.
// it is concurrent safe.  Pools must be created with NewPool.
type Pool struct {
	// can assume chan and timer are created by New in all methods
	// when stopping the timer, close the channel.  The drain for its channel
	// safely handles the zero value that comes on a closed channel.
	maxSize int                     // maximum number of connections, == cap(conns)
	onLease int                     // number of connections given out, <= cap(conns)
	timeout time.Duration           // time after len(conns) == 0 to free all connections
	conns   chan io.ReadWriteCloser // the circular buffer of connections
	timer   *time.Timer             // timer used to destroy connections in the pool after all are returned
	maker   CreationFunc

	reclaiming bool // whether startReclaim's goroutine is running
	mu         *sync.Mutex
}

// NewPool creates a new pool with an upper bound on the number of
// simultaneous connections and on the time they may sit idle before being
// closed.
func NewPool(maxSize int, timeout time.Duration, maker CreationFunc) *Pool {
	p := &Pool{
		maxSize: maxSize,
		timeout: timeout,
		conns:   make(chan io.ReadWriteCloser, maxSize),
		timer:   time.NewTimer(timeout),
		maker:   maker,
		mu:      &sync.Mutex{},
	}
	p.timer.Stop() // stop the timer since there is nothing to close initially
	return p
}

// Get retrieves a communicator from the channel, blocking until one is
// available if all are in use.  It is guaranteed that there is no contention
// for the ReadWriter.  The consumer should not attempt to cast it to its
// concrete type and use it outside this interface.
//
// When done with the communicator, return it with Put(), or discard it with
// Destroy() if it has become no good (e.g., all calls error).
//
// If the error from Get is not nil, you must not return it
// to the pool, or you will cause a panic.
func (p *Pool) Get() (io.ReadWriter, error) {
	// first we must stop the timer so the reclaimer does not eat the
	// connection we are about to give out.  Stop can fail as is documented
	// ( https://golang.org/pkg/time/#Timer.Stop ) but a new connection will
	// be generated anyway, so we can ignore that.
	p.timer.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	// short circuit: if a connection is available, immediately return it
	if len(p.conns) > 0 {
		ret := <-p.conns
		p.onLease++
		return ret, nil
	}
	// check if they're all given out
	if p.onLease == p.maxSize {
		// wait for one to come back
		ret := <-p.conns
		p.onLease++
		return ret, nil
	}
	// now the easy cases are exhausted; we don't have a conn available
	// and they aren't all out; make one and give it out.
	// only increment the lease count if we are giving out something
	// other than garbage
	c, err := p.maker()
	if err == nil {
		p.onLease++
	}
	return c, err
}

// Put restores a communicator to the pool.  It may be reused, or will be
// automatically freed after all connections are returned and the timeout
// has elapsed.  Junk communicators (ones that always error) should be
// Destroy()'d and not returned with Put.
func (p *Pool) Put(rw io.ReadWriter) {
	rwc := (rw).(io.ReadWriteCloser)
	p.conns <- rwc
	p.onLease--
	if len(p.conns) == p.maxSize {
		p.startReclaim()
	}
}

// Destroy immediately frees a communicator from the pool.  This should be used
// instead of Put if the communicator has gone bad.
func (p *Pool) Destroy(rw io.ReadWriter) {
	rwc := (rw).(io.ReadWriteCloser)
	rwc.Close()
	p.onLease--
}

// ReturnWithError returns the connection with Put if err is nil, else
// Destroys it.  It exists to slim down the deferred cleanup at call sites.
func (p *Pool) ReturnWithError(rw io.ReadWriter, err error) {
	if err == nil {
		p.Put(rw)
	} else {
		p.Destroy(rw)
	}
}

// Size returns the number of connections in the pool, or given out from it
func (p *Pool) Size() int {
	return len(p.conns) + p.onLease
}

// Active returns the number of connections owned by the pool that are currently
// given out
func (p *Pool) Active() int {
	return p.onLease
}

// startReclaim spawns another goroutine which will be used to close all
// connections in the pool
func (p *Pool) startReclaim() {
	defer func() { p.reclaiming = true }()
	if !p.reclaiming {
		go func() {
			defer func() { p.reclaiming = false }()
			// wait until the timeout has elapsed, then close everything
			<-p.timer.C
			for {
				select {
				case closer := <-p.conns:
					closer.Close()
				default:
					p.timer.Reset(p.timeout)
					return
				}
			}
		}()
	}
}
