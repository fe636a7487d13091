package command

import (
	"errors"
	"testing"

	"github.com/gofast-io/gofast-server/internal/resp"
	"github.com/gofast-io/gofast-server/internal/store"
)

func fixedClock(ms int64) Clock {
	return func() int64 { return ms }
}

func request(parts ...string) resp.Frame {
	items := make([]resp.Frame, len(parts))
	for i, p := range parts {
		items[i] = resp.Bulk([]byte(p))
	}
	return resp.Arr(items)
}

func TestPingEcho(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)

	got := d.Dispatch(request("PING"))
	if got.Type != resp.SimpleString || got.Str != "PONG" {
		t.Fatalf("PING: got %+v", got)
	}

	got = d.Dispatch(request("ECHO", "hi"))
	want := resp.Bulk([]byte("hi"))
	if got.Type != want.Type || string(got.Bulk) != string(want.Bulk) {
		t.Fatalf("ECHO: got %+v", got)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)

	got := d.Dispatch(request("SET", "k", "v"))
	if got.Type != resp.SimpleString || got.Str != "OK" {
		t.Fatalf("SET: got %+v", got)
	}

	got = d.Dispatch(request("GET", "k"))
	if got.Type != resp.BulkString || string(got.Bulk) != "v" {
		t.Fatalf("GET: got %+v", got)
	}

	got = d.Dispatch(request("GET", "missing"))
	if got.Type != resp.BulkString || !got.IsNull {
		t.Fatalf("GET missing: got %+v", got)
	}
}

func TestSetWithTTLModifiers(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)

	got := d.Dispatch(request("SET", "k", "v", "PX", "50"))
	if got.Type != resp.SimpleString || got.Str != "OK" {
		t.Fatalf("SET PX: got %+v", got)
	}

	got = d.Dispatch(request("GET", "k"))
	if got.Type != resp.BulkString || string(got.Bulk) != "v" {
		t.Fatalf("GET after SET PX: got %+v", got)
	}
}

func TestSetModifierErrors(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)

	got := d.Dispatch(request("SET", "k", "v", "EX", "notanumber"))
	if got.Type != resp.Error || got.Str != "ERR value is not an integer or out of range" {
		t.Fatalf("bad numeric modifier: got %+v", got)
	}

	got = d.Dispatch(request("SET", "k", "v", "BOGUS", "1"))
	if got.Type != resp.Error || got.Str != "ERR syntax error" {
		t.Fatalf("bad modifier name: got %+v", got)
	}

	got = d.Dispatch(request("SET", "k", "v", "EX"))
	if got.Type != resp.Error || got.Str != "ERR syntax error" {
		t.Fatalf("odd modifier arity: got %+v", got)
	}
}

func TestArityErrors(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)

	got := d.Dispatch(request("GET"))
	if got.Type != resp.Error || got.Str != "ERR wrong number of arguments for 'GET'" {
		t.Fatalf("GET arity: got %+v", got)
	}

	got = d.Dispatch(request("DEL"))
	if got.Type != resp.Error || got.Str != "ERR wrong number of arguments for 'DEL'" {
		t.Fatalf("DEL arity: got %+v", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)
	got := d.Dispatch(request("FROB", "x"))
	if got.Type != resp.Error || got.Str != "ERR unknown command 'FROB'" {
		t.Fatalf("got %+v", got)
	}
}

func TestIncrDecr(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)

	got := d.Dispatch(request("INCR", "n"))
	if got.Type != resp.Integer || got.Int != 1 {
		t.Fatalf("INCR: got %+v", got)
	}
	got = d.Dispatch(request("DECR", "n"))
	if got.Type != resp.Integer || got.Int != 0 {
		t.Fatalf("DECR: got %+v", got)
	}

	d.Dispatch(request("SET", "s", "hello"))
	got = d.Dispatch(request("INCR", "s"))
	if got.Type != resp.Error || got.Str != "ERR value is not an integer or out of range" {
		t.Fatalf("INCR non-integer: got %+v", got)
	}
}

func TestWrongTypeFromStore(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)

	d.Dispatch(request("RPUSH", "l", "a"))
	got := d.Dispatch(request("GET", "l"))
	if got.Type != resp.Error || got.Str != store.ErrWrongType.Error() {
		t.Fatalf("GET on list: got %+v", got)
	}
}

func TestPushAndRange(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)

	got := d.Dispatch(request("RPUSH", "l", "a", "b", "c"))
	if got.Type != resp.Integer || got.Int != 3 {
		t.Fatalf("RPUSH: got %+v", got)
	}
	got = d.Dispatch(request("LPUSH", "l", "x", "y"))
	if got.Type != resp.Integer || got.Int != 5 {
		t.Fatalf("LPUSH: got %+v", got)
	}

	got = d.Dispatch(request("LRANGE", "l", "0", "-1"))
	if got.Type != resp.Array || len(got.Items) != 5 {
		t.Fatalf("LRANGE: got %+v", got)
	}
	want := []string{"y", "x", "a", "b", "c"}
	for i, w := range want {
		if string(got.Items[i].Bulk) != w {
			t.Fatalf("LRANGE[%d]: got %q want %q", i, got.Items[i].Bulk, w)
		}
	}
}

func TestSaveInvokesSaver(t *testing.T) {
	called := false
	d := NewDispatcher(store.New(4), fixedClock(1000), func() error {
		called = true
		return nil
	})
	got := d.Dispatch(request("SAVE"))
	if got.Type != resp.SimpleString || got.Str != "OK" {
		t.Fatalf("SAVE: got %+v", got)
	}
	if !called {
		t.Fatal("expected saver to be invoked")
	}
}

func TestSaveErrorPropagates(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), func() error {
		return errors.New("disk full")
	})
	got := d.Dispatch(request("SAVE"))
	if got.Type != resp.Error || got.Str != "ERR disk full" {
		t.Fatalf("got %+v", got)
	}
}

func TestDelExists(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)
	d.Dispatch(request("SET", "a", "1"))
	d.Dispatch(request("SET", "b", "2"))

	got := d.Dispatch(request("EXISTS", "a", "b", "missing"))
	if got.Type != resp.Integer || got.Int != 2 {
		t.Fatalf("EXISTS: got %+v", got)
	}

	got = d.Dispatch(request("DEL", "a", "missing"))
	if got.Type != resp.Integer || got.Int != 1 {
		t.Fatalf("DEL: got %+v", got)
	}
}

func TestMalformedRequestFrame(t *testing.T) {
	d := NewDispatcher(store.New(4), fixedClock(1000), nil)
	got := d.Dispatch(resp.Bulk([]byte("not a command array")))
	if got.Type != resp.Error {
		t.Fatalf("expected protocol error frame, got %+v", got)
	}
}
