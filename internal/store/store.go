// Package store implements the shared state store that every component
// reads and writes instead of holding private copies.  Values are kept
// in memory per process, persisted as JSON under namespaced Redis keys,
// and change notifications are fanned out both to in-process
// subscribers and, via Redis pub/sub, to every other process sharing
// the same Redis.  The underlying pub/sub does not echo a publication
// back in a useful way for the writer, so the writer's own process is
// notified locally before the publish goes out; remote notifications
// carry an origin id and own-origin messages are skipped on receipt.
//
// Concurrency discipline is last-write-wins: individual writes are
// atomic, sequences of read-modify-write are not. When Redis is
// unavailable the store degrades to pure in-memory operation, the same
// way the response cache degrades when its client is nil.
package store

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// notification is the payload published on the change channel.
type notification struct {
	Origin string          `json:"origin"`          // writer's process id
	Key    string          `json:"key"`             // logical state key
	Value  json.RawMessage `json:"value,omitempty"` // new serialized value (nil = deleted)
}

// subscriber is one registered in-process listener.
type subscriber struct {
	key string // key the listener watches ("" = all keys)
	fn  func(key string, value json.RawMessage)
}

// Store mirrors state into Redis and propagates changes to all
// contexts. The zero value is not usable; call New.
type Store struct {
	mu     sync.RWMutex
	data   map[string]json.RawMessage
	subs   map[int]subscriber
	nextID int

	rdb    *redis.Client // nil = in-memory only
	prefix string        // key namespace, e.g. "prs"
	origin string        // identifies this process's own publications
}

// New constructs a Store. rdb may be nil, in which case the store works
// purely in memory and cross-process propagation is disabled.
func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "prs"
	}
	return &Store{
		data:   make(map[string]json.RawMessage),
		subs:   make(map[int]subscriber),
		rdb:    rdb,
		prefix: prefix,
		origin: uuid.NewString(),
	}
}

func (s *Store) stateKey(key string) string { return s.prefix + ":state:" + key }
func (s *Store) channel() string            { return s.prefix + ":changes" }

// Listen starts the goroutine that applies change notifications from
// other processes. It returns immediately and is a no-op without Redis.
// Cancel ctx to stop listening.
func (s *Store) Listen(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	sub := s.rdb.Subscribe(ctx, s.channel())
	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var n notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					log.Printf("store: malformed change notification: %v", err)
					continue
				}
				s.applyRemote(n)
			}
		}
	}()
}

// applyRemote folds a notification from another context into local
// state. Own-origin messages are skipped: the writer already notified
// its subscribers synchronously at write time.
func (s *Store) applyRemote(n notification) {
	if n.Origin == s.origin {
		return
	}
	s.mu.Lock()
	if n.Value == nil {
		delete(s.data, n.Key)
	} else {
		s.data[n.Key] = n.Value
	}
	subs := s.watchers(n.Key)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(n.Key, n.Value)
	}
}

// watchers returns the callbacks interested in key. Caller holds mu.
func (s *Store) watchers(key string) []func(string, json.RawMessage) {
	var out []func(string, json.RawMessage)
	for _, sub := range s.subs {
		if sub.key == "" || sub.key == key {
			out = append(out, sub.fn)
		}
	}
	return out
}

// Subscribe registers fn to run after every observed change to key
// (pass "" to watch all keys). Callbacks run on the writer's goroutine
// and must not block or call back into the store. The returned cancel
// func unregisters the subscription and is safe to call more than once.
func (s *Store) Subscribe(key string, fn func(key string, value json.RawMessage)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = subscriber{key: key, fn: fn}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Read unmarshals the current value for key into out and reports
// whether a value was found. Lookup order is process memory, then the
// persisted Redis copy. A missing key or a malformed stored payload is
// treated as a cache miss: the error is logged, out keeps whatever
// default the caller put there, and false is returned. Read never
// panics or propagates storage errors.
func (s *Store) Read(ctx context.Context, key string, out interface{}) bool {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok && s.rdb != nil {
		val, err := s.rdb.Get(ctx, s.stateKey(key)).Result()
		if err != nil {
			return false // redis.Nil or transport error, either way a miss
		}
		raw = json.RawMessage(val)
		ok = true
		// Warm process memory so the next read skips the round trip.
		s.mu.Lock()
		if _, exists := s.data[key]; !exists {
			s.data[key] = raw
		}
		s.mu.Unlock()
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("store: stored value for %q is malformed, treating as miss: %v", key, err)
		return false
	}
	return true
}

// Raw returns the serialized in-memory value for key, for callers that
// need to capture and later restore an exact pre-mutation snapshot.
func (s *Store) Raw(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	return raw, ok
}

// Write serializes v and stores it under key, notifying in-process
// subscribers first and then persisting and publishing to other
// processes. Persistence and publish failures are logged, never
// returned: local state already moved on and the poll fallback will
// re-converge remote readers. The only returned error is a value that
// cannot be serialized.
func (s *Store) Write(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.WriteRaw(ctx, key, raw)
	return nil
}

// WriteRaw stores an already-serialized value under key. Same
// notification and persistence behavior as Write.
func (s *Store) WriteRaw(ctx context.Context, key string, raw json.RawMessage) {
	s.mu.Lock()
	s.data[key] = raw
	subs := s.watchers(key)
	s.mu.Unlock()

	// Synthesized local notification: the writer's own context observes
	// the change without a re-read.
	for _, fn := range subs {
		fn(key, raw)
	}
	s.propagate(ctx, notification{Origin: s.origin, Key: key, Value: raw})
}

// Delete removes key everywhere. Used to roll back an optimistic write
// to a key that did not exist before the mutation.
func (s *Store) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.data, key)
	subs := s.watchers(key)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(key, nil)
	}
	s.propagate(ctx, notification{Origin: s.origin, Key: key})
}

// propagate persists the value and publishes the change notification.
func (s *Store) propagate(ctx context.Context, n notification) {
	if s.rdb == nil {
		return
	}
	if n.Value == nil {
		if err := s.rdb.Del(ctx, s.stateKey(n.Key)).Err(); err != nil {
			log.Printf("store: delete %q failed: %v", n.Key, err)
		}
	} else if err := s.rdb.Set(ctx, s.stateKey(n.Key), string(n.Value), 0).Err(); err != nil {
		log.Printf("store: persist %q failed: %v", n.Key, err)
	}
	payload, err := json.Marshal(n)
	if err != nil {
		log.Printf("store: marshal notification for %q failed: %v", n.Key, err)
		return
	}
	if err := s.rdb.Publish(ctx, s.channel(), payload).Err(); err != nil {
		log.Printf("store: publish change for %q failed: %v", n.Key, err)
	}
}
