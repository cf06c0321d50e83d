package services

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mescon/Hassarr/internal/clock"
	"github.com/mescon/Hassarr/internal/responses"
)

// addGuard merges concurrent identical add requests and replays a
// successful add for repeats within the cool-down.
type addGuard struct {
	group    singleflight.Group
	clock    clock.Clock
	cooldown time.Duration

	mu     sync.Mutex
	recent map[string]*responses.MediaAdded
}

func newAddGuard(c clock.Clock, cooldown time.Duration) *addGuard {
	return &addGuard{
		clock:    clock.OrDefault(c),
		cooldown: cooldown,
		recent:   map[string]*responses.MediaAdded{},
	}
}

func addKey(title, season string, is4k bool, userID string) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(title)),
		strings.ToLower(strings.TrimSpace(season)),
		strconv.FormatBool(is4k),
		userID,
	}, "|")
}

// do runs fn once per key at a time. The second return value is false for
// callers that received another caller's result. Followers always get their
// own copy, and a shared success comes back marked as replayed.
func (g *addGuard) do(key string, fn func() responses.Response) (responses.Response, bool) {
	if replay := g.replay(key); replay != nil {
		return replay, false
	}

	leader := false
	v, _, _ := g.group.Do(key, func() (interface{}, error) {
		leader = true
		r := fn()
		if added, ok := r.(*responses.MediaAdded); ok {
			g.remember(key, added)
		}
		return r, nil
	})
	r := v.(responses.Response)
	if leader {
		return r, true
	}
	if added, ok := r.(*responses.MediaAdded); ok {
		return added.Replayed(), false
	}
	return responses.Copy(r), false
}

func (g *addGuard) replay(key string) *responses.MediaAdded {
	g.mu.Lock()
	defer g.mu.Unlock()
	if added, ok := g.recent[key]; ok {
		return added.Replayed()
	}
	return nil
}

func (g *addGuard) remember(key string, added *responses.MediaAdded) {
	if g.cooldown <= 0 {
		return
	}
	g.mu.Lock()
	g.recent[key] = added.Replayed()
	g.mu.Unlock()

	g.clock.AfterFunc(g.cooldown, func() {
		g.mu.Lock()
		delete(g.recent, key)
		g.mu.Unlock()
	})
}
