package runtime

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Conn records every envelope it is sent.
type Conn struct {
	id       string
	mu       sync.Mutex
	received []event.Envelope
	err      error
}

func NewConn() *Conn {
	return &Conn{id: uuid.NewString()}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(envelope event.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.received = append(c.received, envelope)
	return nil
}

func (c *Conn) Received() []event.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Envelope{}, c.received...)
}

func TestRegistry_Claim_Unique_Nickname(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice, bob := NewConn(), NewConn()

	// Given two connections
	registry.Register(alice)
	registry.Register(bob)
	req.Equal(2, registry.Count())

	// When both claim the same nickname
	req.NoError(registry.Claim(alice.ID(), "alice"))
	err := registry.Claim(bob.ID(), "alice")

	// Then only the first succeeds
	req.ErrorIs(err, errors.ErrNicknameTaken)
	nickname, ok := registry.NicknameOf(alice.ID())
	req.True(ok)
	req.Equal("alice", nickname)
	_, ok = registry.NicknameOf(bob.ID())
	req.False(ok)
}

func TestRegistry_Claim_Is_Case_Sensitive(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice, other := NewConn(), NewConn()
	registry.Register(alice)
	registry.Register(other)

	req.NoError(registry.Claim(alice.ID(), "alice"))
	req.NoError(registry.Claim(other.ID(), "Alice"))
}

func TestRegistry_Reclaim_And_Rename(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice, bob := NewConn(), NewConn()
	registry.Register(alice)
	registry.Register(bob)
	req.NoError(registry.Claim(alice.ID(), "alice"))

	// When the holder claims its own nickname again
	req.NoError(registry.Claim(alice.ID(), "alice"))

	// When it renames itself
	req.NoError(registry.Claim(alice.ID(), "alicia"))
	nickname, _ := registry.NicknameOf(alice.ID())
	req.Equal("alicia", nickname)

	// Then the old nickname is free again
	req.NoError(registry.Claim(bob.ID(), "alice"))

	// And a failed rename keeps the current nickname
	req.ErrorIs(registry.Claim(alice.ID(), "alice"), errors.ErrNicknameTaken)
	nickname, _ = registry.NicknameOf(alice.ID())
	req.Equal("alicia", nickname)
}

func TestRegistry_Claim_Unknown_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	req.ErrorIs(registry.Claim("ghost", "alice"), errors.ErrConnectionNotFound)
}

func TestRegistry_Release_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice, bob := NewConn(), NewConn()
	registry.Register(alice)
	registry.Register(bob)
	req.NoError(registry.Claim(alice.ID(), "alice"))

	nickname, ok := registry.Release(alice.ID())
	req.True(ok)
	req.Equal("alice", nickname)
	req.Equal(1, registry.Count())

	_, ok = registry.Release(alice.ID())
	req.False(ok)
	req.Equal(1, registry.Count())

	// Then the nickname can be claimed by another connection
	req.NoError(registry.Claim(bob.ID(), "alice"))
	req.Len(registry.Connections(), 1)
}

func TestRegistry_Concurrent_Claims(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var wins atomic.Int32
	var wg sync.WaitGroup

	// Given many connections racing for the same nickname
	for i := 0; i < 50; i++ {
		conn := &Conn{id: fmt.Sprintf("conn-%d", i)}
		registry.Register(conn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if registry.Claim(conn.ID(), "popular") == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	// Then exactly one holds it
	req.Equal(int32(1), wins.Load())
}
