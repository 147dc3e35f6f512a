// Package identity manages the process-wide agent identity file: a small
// JSON document carrying a stable prime_agent_id, persisted with the same
// write-temp-then-rename, mode-0600 pattern used throughout this
// repository's on-disk state.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prime-system/prime-agent/pkg/logger"
	"github.com/prime-system/prime-agent/pkg/utils/atomicfile"
	appjson "github.com/prime-system/prime-agent/pkg/utils/json"
)

// Identity is the persisted shape: {prime_agent_id, created_at, last_loaded}.
type Identity struct {
	PrimeAgentID string    `json:"prime_agent_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastLoaded   time.Time `json:"last_loaded"`
}

// Service loads or creates the identity file once and caches it for the
// lifetime of the process.
type Service struct {
	path string

	mu     sync.Mutex
	cached *Identity
}

func NewService(dataDir string) *Service {
	return &Service{path: filepath.Join(dataDir, "agent", "identity.json")}
}

func generateAgentID() string {
	return "agent_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// GetOrCreate returns the cached identity, loading it from disk (or
// creating it) on first call. Every call updates last_loaded and
// persists it.
func (s *Service) GetOrCreate() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		s.cached.LastLoaded = time.Now().UTC()
		if err := s.save(*s.cached); err != nil {
			return Identity{}, err
		}
		return *s.cached, nil
	}

	loaded, err := s.load()
	now := time.Now().UTC()
	if err != nil {
		logger.WarnX("identity", "failed to load identity file, generating a new one: %v", err)
		loaded = nil
	}

	var id Identity
	if loaded != nil {
		id = *loaded
		id.LastLoaded = now
	} else {
		id = Identity{PrimeAgentID: generateAgentID(), CreatedAt: now, LastLoaded: now}
		logger.InfoX("identity", "created new agent identity %s", id.PrimeAgentID)
	}

	if err := s.save(id); err != nil {
		return Identity{}, err
	}
	s.cached = &id
	return id, nil
}

func (s *Service) load() (*Identity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var id Identity
	if err := appjson.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}
	return &id, nil
}

func (s *Service) save(id Identity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	data, err := appjson.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return atomicfile.WriteFile(s.path, data, 0o600)
}

// Cached returns the previously loaded identity's id without touching
// disk, or "" if GetOrCreate has never been called.
func (s *Service) Cached() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return ""
	}
	return s.cached.PrimeAgentID
}
