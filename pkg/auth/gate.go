// Package auth tracks which role the dashboard operator selected and decides
// which views that role may enter. It is role selection, not credential
// checking.
package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownRole = errors.New("unknown role")

type Role string

const (
	None   Role = ""
	Server Role = "server"
	Client Role = "client"
)

func (r Role) Valid() bool {
	return r == Server || r == Client
}

func (r Role) String() string {
	if r == None {
		return "none"
	}

	return string(r)
}

type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// Session is a copy of the gate state at one instant.
type Session struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	LoggedIn  bool      `json:"logged_in"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

// Gate holds the process-wide session. The zero value is not usable; use
// NewGate.
type Gate struct {
	mu      sync.RWMutex
	session Session
	now     func() time.Time
}

func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// Login switches to role from any state, replacing any previous session.
func (g *Gate) Login(role Role) (Session, error) {
	if !role.Valid() {
		return Session{}, ErrUnknownRole
	}

	s := Session{
		ID:        uuid.NewString(),
		Role:      role,
		LoggedIn:  true,
		StartedAt: g.now(),
	}

	g.mu.Lock()
	g.session = s
	g.mu.Unlock()

	return s, nil
}

func (g *Gate) Logout() {
	g.mu.Lock()
	g.session = Session{}
	g.mu.Unlock()
}

func (g *Gate) Session() Session {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.session
}

func (g *Gate) Role() Role {
	return g.Session().Role
}

// Authorize allows only a session logged in with exactly the required role.
func (g *Gate) Authorize(required Role) Decision {
	s := g.Session()
	if !s.LoggedIn || !required.Valid() {
		return Deny
	}

	return Decision(s.Role == required)
}
