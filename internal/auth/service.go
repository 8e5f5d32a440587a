package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store Store
	cost  int
	now   func() time.Time

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

type Option func(*Service)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
		subs:  make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, displayName, email, password string) (User, Session, error) {
	displayName = strings.TrimSpace(displayName)
	email = normalizeEmail(email)
	if displayName == "" || email == "" || strings.TrimSpace(password) == "" {
		return User{}, Session{}, reject(KindInvalid, MsgMissingFields)
	}

	if _, err := s.store.UserByEmail(ctx, email); err == nil {
		return User{}, Session{}, reject(KindConflict, MsgEmailTaken)
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, Session{}, fmt.Errorf("auth: lookup user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, Session{}, fmt.Errorf("auth: hash password: %w", err)
	}
	u := User{
		UserID:         uuid.NewString(),
		Email:          email,
		DisplayName:    displayName,
		HashedPassword: string(hashed),
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return User{}, Session{}, reject(KindConflict, MsgEmailTaken)
		}
		return User{}, Session{}, fmt.Errorf("auth: create user: %w", err)
	}
	log.Printf("[auth] registered user=%s", u.UserID)

	sess, err := s.openSession(ctx, u.UserID)
	if err != nil {
		return User{}, Session{}, err
	}
	return u, sess, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (User, Session, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return User{}, Session{}, reject(KindInvalid, MsgMissingCredentials)
	}

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, Session{}, reject(KindUnauthorized, MsgInvalidCredentials)
	}
	if err != nil {
		return User{}, Session{}, fmt.Errorf("auth: lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		return User{}, Session{}, reject(KindUnauthorized, MsgInvalidCredentials)
	}

	sess, err := s.openSession(ctx, u.UserID)
	if err != nil {
		return User{}, Session{}, err
	}
	return u, sess, nil
}

func (s *Service) openSession(ctx context.Context, userID string) (Session, error) {
	sess := Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().Add(SessionLifetime),
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("auth: save session: %w", err)
	}
	s.emit(Event{UserID: userID, SignedIn: true})
	return sess, nil
}

// Logout ends the session. An unknown session is not an error. The user is
// reported signed out only once no live session of theirs is left.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.store.SessionByID(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth: lookup session: %w", err)
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	live, err := s.store.LiveSessions(ctx, sess.UserID, s.now())
	if err != nil {
		log.Printf("[auth] counting sessions of %s: %v", sess.UserID, err)
		return nil
	}
	if live == 0 {
		s.emit(Event{UserID: sess.UserID, SignedIn: false})
	}
	return nil
}

// FindSessionByID returns a live session. Expired sessions are rejected.
func (s *Service) FindSessionByID(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, reject(KindUnauthorized, MsgNoSession)
	}
	sess, err := s.store.SessionByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Session{}, reject(KindUnauthorized, MsgNoSession)
	}
	if err != nil {
		return Session{}, fmt.Errorf("auth: lookup session: %w", err)
	}
	if !sess.ExpiresAt.After(s.now()) {
		return Session{}, reject(KindUnauthorized, MsgNoSession)
	}
	return sess, nil
}

func (s *Service) User(ctx context.Context, id string) (User, error) {
	u, err := s.store.UserByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return User{}, reject(KindUnauthorized, MsgNoSession)
	}
	return u, err
}

// Subscribe registers fn for every sign-in and sign-out. fn runs on the
// caller's goroutine and must not block.
func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Service) emit(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
