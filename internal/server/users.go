package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("username taken")

	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserSpec seeds an account.
type UserSpec struct {
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Name        string   `yaml:"name,omitempty"`
	Roles       []string `yaml:"roles,omitempty"`
	Permissions []string `yaml:"permissions,omitempty"`
}

// DefaultUsers is the account set used when none is configured.
func DefaultUsers() []UserSpec {
	return []UserSpec{
		{Username: "admin", Password: "admin", Name: "Administrator", Roles: []string{"admin"}},
	}
}

// User is a stored account. The password is only kept as a bcrypt hash.
type User struct {
	ID          string
	Username    string
	Name        string
	Roles       []string
	Permissions []string
	hash        []byte
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserStore is an in-memory account table.
type UserStore struct {
	mu     sync.RWMutex
	byName map[string]*User
	cost   int
}

// NewUserStore returns an empty store hashing with the given bcrypt cost.
func NewUserStore(cost int) *UserStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserStore{byName: make(map[string]*User), cost: cost}
}

func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Add creates an account.
func (s *UserStore) Add(spec UserSpec) (*User, error) {
	username := normalizeUsername(spec.Username)
	if username == "" || spec.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(spec.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := spec.Name
	if name == "" {
		name = spec.Username
	}
	u := &User{
		ID:          uuid.NewString(),
		Username:    username,
		Name:        name,
		Roles:       append([]string(nil), spec.Roles...),
		Permissions: append([]string(nil), spec.Permissions...),
		hash:        hash,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[username]; ok {
		return nil, ErrUserExists
	}
	s.byName[username] = u
	return u, nil
}

// Get returns the account for username.
func (s *UserStore) Get(username string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byName[normalizeUsername(username)]
	return u, ok
}

// Authenticate checks a username and password pair.
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	u, ok := s.Get(username)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	s.mu.RLock()
	hash := u.hash
	s.mu.RUnlock()
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// SetPassword replaces the password of username.
func (s *UserStore) SetPassword(username, password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	u, ok := s.Get(username)
	if !ok {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	s.mu.Lock()
	u.hash = hash
	s.mu.Unlock()
	return nil
}

// Len returns the number of accounts.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName)
}
