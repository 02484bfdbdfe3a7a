package challenge

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/hauke92/mindgate/internal/domain"
	"github.com/hauke92/mindgate/internal/metrics"
)

// DefaultTTL is how long an issued challenge stays answerable.
const DefaultTTL = 2 * time.Minute

type issued struct {
	challenge Challenge
	expiresAt time.Time
}

// Registry holds issued challenges until they are solved or expire. An
// incorrect answer keeps the challenge open for another try within the
// TTL.
type Registry struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu     sync.Mutex
	byID   map[string]issued
	nextGC time.Time
}

func NewRegistry(clock clockwork.Clock, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		clock: clock,
		ttl:   ttl,
		byID:  make(map[string]issued),
	}
}

// Issue generates a fresh challenge for pkg and registers it.
func (r *Registry) Issue(pkg string, difficulty domain.MathDifficulty) Challenge {
	c := Generate(difficulty)
	c.ID = uuid.NewString()
	c.Package = pkg

	r.mu.Lock()
	r.gcLocked()
	r.byID[c.ID] = issued{challenge: c, expiresAt: r.clock.Now().Add(r.ttl)}
	r.mu.Unlock()

	metrics.ChallengesIssuedTotal.WithLabelValues(string(difficulty)).Inc()
	slog.Info("Math challenge issued", "challenge_id", c.ID, "package", pkg, "difficulty", difficulty)
	return c
}

// Verify checks an answer. A correct answer consumes the challenge; a
// wrong one leaves it open for retry. Unknown or expired ids yield
// ErrChallengeNotFound.
func (r *Registry) Verify(id string, answer int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok || r.clock.Now().After(entry.expiresAt) {
		delete(r.byID, id)
		metrics.ChallengesVerifiedTotal.WithLabelValues("not_found").Inc()
		return false, domain.ErrChallengeNotFound
	}

	if answer != entry.challenge.answer {
		metrics.ChallengesVerifiedTotal.WithLabelValues("incorrect").Inc()
		return false, nil
	}

	delete(r.byID, id)
	metrics.ChallengesVerifiedTotal.WithLabelValues("correct").Inc()
	return true, nil
}

// gcLocked drops expired entries, at most once per TTL interval.
func (r *Registry) gcLocked() {
	now := r.clock.Now()
	if now.Before(r.nextGC) {
		return
	}
	r.nextGC = now.Add(r.ttl)
	for id, entry := range r.byID {
		if now.After(entry.expiresAt) {
			delete(r.byID, id)
		}
	}
}
