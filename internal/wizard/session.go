package wizard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/internal/imagequality"
	"github.com/visionari-app/visionari-backend/internal/profile"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	apperrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

// Session is the transient per-wizard state. One session per open
// wizard; destroyed on close or expiry, never shared across users.
type Session struct {
	mu sync.Mutex

	ID       uuid.UUID
	UserID   uuid.UUID
	ImageID  uuid.UUID
	ImageURL string

	ImageWidthPx  int
	ImageHeightPx int

	Step        enums.WizardStep
	Config      types.ProductConfig
	Address     types.ShippingAddress
	Eligibility profile.Eligibility

	Validation    *imagequality.Result
	validationGen uint64
	latestGen     uint64

	Price *types.PriceBreakdown

	IdempotencyKey string
	SubmitInFlight bool
	Result         *SubmitResult

	CreatedAt time.Time
	UpdatedAt time.Time
}

// nextGeneration reserves a validation generation. Only the result
// carrying the newest generation may be applied.
func (s *Session) nextGeneration() uint64 {
	s.latestGen++
	return s.latestGen
}

// applyValidation stores the result unless a newer generation has been
// reserved since, in which case the stale result is discarded.
func (s *Session) applyValidation(gen uint64, result imagequality.Result) bool {
	if gen != s.latestGen {
		return false
	}
	s.Validation = &result
	s.validationGen = gen
	return true
}

// validationCurrent reports whether the stored result matches the
// newest reserved generation. False while a validation is in flight.
func (s *Session) validationCurrent() bool {
	return s.Validation != nil && s.validationGen == s.latestGen
}

// lastActive reads the activity timestamp under the session lock.
// Request handlers write UpdatedAt holding that lock, so expiry checks
// must take it too.
func (s *Session) lastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdatedAt
}

// Store keeps live sessions in memory. Sessions are modal-scoped and
// carry no durable state, so process-local storage is sufficient; a
// process restart simply closes open wizards.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
	}
}

func (st *Store) Put(session *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[session.ID] = session
}

func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	session, ok := st.sessions[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "wizard session not found")
	}
	if time.Since(session.lastActive()) > st.ttl {
		delete(st.sessions, id)
		return nil, apperrors.New(apperrors.CodeNotFound, "wizard session expired")
	}
	return session, nil
}

func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Sweep drops expired sessions and returns how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, session := range st.sessions {
		if time.Since(session.lastActive()) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
