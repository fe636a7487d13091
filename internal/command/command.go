// Package command implements the Command Dispatcher: it validates and
// executes decoded RESP frames against a store.Store, producing the
// reply frame the connection loop writes back.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofast-io/gofast-server/internal/resp"
	"github.com/gofast-io/gofast-server/internal/store"
)

// Clock supplies the current time in milliseconds since epoch, so tests
// can drive TTL behavior deterministically instead of racing wall clock.
type Clock func() int64

// Dispatcher executes commands against a Store.
type Dispatcher struct {
	store *store.Store
	now   Clock
	saver func() error
}

// NewDispatcher builds a Dispatcher. saver is invoked for the SAVE
// command; it is nil-safe (SAVE replies OK as a no-op if saver is nil,
// which is useful for tests that don't exercise persistence).
func NewDispatcher(s *store.Store, now Clock, saver func() error) *Dispatcher {
	return &Dispatcher{store: s, now: now, saver: saver}
}

type handlerFunc func(d *Dispatcher, args []string) resp.Frame

type commandSpec struct {
	minArity int
	maxArity int // 0 means unbounded
	handler  handlerFunc
}

// table is the command set from spec.md §6 plus the LRANGE addition.
// Arity counts include the command name itself, matching the RESP
// array length a client sends.
var table = map[string]commandSpec{
	"PING":   {1, 1, cmdPing},
	"ECHO":   {2, 2, cmdEcho},
	"SET":    {3, 0, cmdSet},
	"GET":    {2, 2, cmdGet},
	"DEL":    {2, 0, cmdDel},
	"EXISTS": {2, 0, cmdExists},
	"INCR":   {2, 2, cmdIncr},
	"DECR":   {2, 2, cmdDecr},
	"LPUSH":  {3, 0, cmdLPush},
	"RPUSH":  {3, 0, cmdRPush},
	"LRANGE": {4, 4, cmdLRange},
	"SAVE":   {1, 1, cmdSave},
}

// Dispatch runs the 5-step contract from spec.md §4.3: arity, argument
// kind (already guaranteed BulkString by Frame.AsCommand), modifiers
// (parsed per-command), invoke, map result to reply. frame must be the
// Array frame read off the wire.
func (d *Dispatcher) Dispatch(frame resp.Frame) resp.Frame {
	args, err := frame.AsCommand()
	if err != nil {
		return resp.Err("ERR " + err.Error())
	}
	if len(args) == 0 {
		return resp.Err("ERR unknown command ''")
	}

	name := strings.ToUpper(args[0])
	spec, ok := table[name]
	if !ok {
		return resp.Err(fmt.Sprintf("ERR unknown command '%s'", args[0]))
	}
	if len(args) < spec.minArity || (spec.maxArity > 0 && len(args) > spec.maxArity) {
		return resp.Err(fmt.Sprintf("ERR wrong number of arguments for '%s'", args[0]))
	}
	return spec.handler(d, args)
}

func cmdPing(d *Dispatcher, args []string) resp.Frame {
	return resp.Str("PONG")
}

func cmdEcho(d *Dispatcher, args []string) resp.Frame {
	return resp.Bulk([]byte(args[1]))
}

func cmdGet(d *Dispatcher, args []string) resp.Frame {
	value, found, err := d.store.Get(args[1], d.now())
	if err != nil {
		return resp.Err(err.Error())
	}
	if !found {
		return resp.NullBulk()
	}
	return resp.Bulk(value)
}

// cmdSet parses the optional EX/PX/EXAT/PXAT modifier pair per
// spec.md §4.3: only one may be given; duplicates or conflicts are a
// syntax error; a non-integer modifier value is a typed numeric error.
func cmdSet(d *Dispatcher, args []string) resp.Frame {
	ttl := store.NoTTL
	if len(args) == 4 || len(args) > 5 {
		return resp.Err("ERR syntax error")
	}
	if len(args) == 5 {
		kind, ok := ttlKindFor(args[3])
		if !ok {
			return resp.Err("ERR syntax error")
		}
		n, err := strconv.ParseInt(args[4], 10, 64)
		if err != nil {
			return resp.Err("ERR value is not an integer or out of range")
		}
		ttl = store.TTL{Kind: kind, Value: n}
	}

	d.store.Set(args[1], []byte(args[2]), ttl, d.now())
	return resp.Str("OK")
}

func ttlKindFor(modifier string) (store.TTLKind, bool) {
	switch strings.ToUpper(modifier) {
	case "EX":
		return store.TTLRelativeSeconds, true
	case "PX":
		return store.TTLRelativeMillis, true
	case "EXAT":
		return store.TTLAbsoluteSeconds, true
	case "PXAT":
		return store.TTLAbsoluteMillis, true
	default:
		return 0, false
	}
}

func cmdDel(d *Dispatcher, args []string) resp.Frame {
	return resp.Int(int64(d.store.Del(args[1:], d.now())))
}

func cmdExists(d *Dispatcher, args []string) resp.Frame {
	return resp.Int(int64(d.store.Exists(args[1:], d.now())))
}

func cmdIncr(d *Dispatcher, args []string) resp.Frame {
	v, err := d.store.Incr(args[1], d.now())
	if err != nil {
		return resp.Err(err.Error())
	}
	return resp.Int(v)
}

func cmdDecr(d *Dispatcher, args []string) resp.Frame {
	v, err := d.store.Decr(args[1], d.now())
	if err != nil {
		return resp.Err(err.Error())
	}
	return resp.Int(v)
}

func cmdLPush(d *Dispatcher, args []string) resp.Frame {
	return pushReply(d.store.LPush(args[1], bulkArgs(args[2:]), d.now()))
}

func cmdRPush(d *Dispatcher, args []string) resp.Frame {
	return pushReply(d.store.RPush(args[1], bulkArgs(args[2:]), d.now()))
}

func pushReply(length int, err error) resp.Frame {
	if err != nil {
		return resp.Err(err.Error())
	}
	return resp.Int(int64(length))
}

func bulkArgs(args []string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

func cmdLRange(d *Dispatcher, args []string) resp.Frame {
	start, err := strconv.Atoi(args[2])
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	stop, err := strconv.Atoi(args[3])
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	items, err := d.store.LRange(args[1], start, stop, d.now())
	if err != nil {
		return resp.Err(err.Error())
	}
	frames := make([]resp.Frame, len(items))
	for i, item := range items {
		frames[i] = resp.Bulk(item)
	}
	return resp.Arr(frames)
}

func cmdSave(d *Dispatcher, args []string) resp.Frame {
	if d.saver != nil {
		if err := d.saver(); err != nil {
			return resp.Err("ERR " + err.Error())
		}
	}
	return resp.Str("OK")
}
