package autonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ceponatia/warden/internal/workdoc"
)

// Default locations for the autonomy config aggregates.
const (
	DefaultDataDir   = "data"
	DefaultConfigDir = "config"

	repoPolicyFile   = "autonomy.json"
	globalPolicyFile = "autonomy-global.json"
)

// Store persists the per-repository rule aggregates and the global policy
// list. Both are explicit load/normalize/save aggregates, never ambient
// globals; writes are atomic and serialized per file. A grant or revocation
// that cannot be durably written is reported as a failure.
type Store struct {
	// DataDir holds data/<repo>/autonomy.json.
	DataDir string

	// ConfigDir holds config/autonomy-global.json.
	ConfigDir string

	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// StoreOption configures a Store instance.
type StoreOption func(*Store)

// WithDataDir sets the repository data directory.
func WithDataDir(dir string) StoreOption {
	return func(s *Store) {
		s.DataDir = dir
	}
}

// WithConfigDir sets the global config directory.
func WithConfigDir(dir string) StoreOption {
	return func(s *Store) {
		s.ConfigDir = dir
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an autonomy policy store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		DataDir:   DefaultDataDir,
		ConfigDir: DefaultConfigDir,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// fileLock returns the writer lock for one aggregate file.
func (s *Store) fileLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// repoPolicyPath returns the path of a repository's autonomy aggregate.
func (s *Store) repoPolicyPath(repo string) string {
	return filepath.Join(s.DataDir, repo, repoPolicyFile)
}

// globalPolicyPath returns the path of the global policy aggregate.
func (s *Store) globalPolicyPath() string {
	return filepath.Join(s.ConfigDir, globalPolicyFile)
}

// LoadRepoPolicy loads and normalizes a repository's autonomy aggregate.
// A missing or malformed file yields an empty rule list with default
// thresholds; absence is not an error.
func (s *Store) LoadRepoPolicy(repo string) (*RepoPolicy, error) {
	var p RepoPolicy
	if err := readJSON(s.repoPolicyPath(repo), &p); err != nil {
		p = RepoPolicy{}
	}
	normalizeRepoPolicy(&p)
	return &p, nil
}

// SaveRepoPolicy writes a repository's autonomy aggregate. Write failures
// propagate: a mutation that did not land on disk did not happen.
func (s *Store) SaveRepoPolicy(repo string, p *RepoPolicy) error {
	normalizeRepoPolicy(p)
	return writeJSON(s.repoPolicyPath(repo), p)
}

// Grant creates or replaces the rule for (repo, agent) and persists it.
func (s *Store) Grant(repo, agent string, allowedCodes []string, maxSeverity string, conditions Conditions) (*Rule, error) {
	if agent == "" {
		return nil, ErrEmptyAgent
	}

	var maxSev = DefaultMaxSeverity
	if maxSeverity != "" {
		sev, err := workdoc.ParseSeverity(maxSeverity)
		if err != nil {
			return nil, err
		}
		maxSev = sev
	}

	rule := Rule{
		AgentName:    agent,
		Enabled:      true,
		GrantedAt:    s.now(),
		AllowedCodes: allowedCodes,
		MaxSeverity:  maxSev,
		Conditions:   conditions,
	}

	path := s.repoPolicyPath(repo)
	l := s.fileLock(path)
	l.Lock()
	defer l.Unlock()

	p, err := s.LoadRepoPolicy(repo)
	if err != nil {
		return nil, err
	}

	replaced := false
	for i := range p.Rules {
		if p.Rules[i].AgentName == agent {
			p.Rules[i] = rule
			replaced = true
			break
		}
	}
	if !replaced {
		p.Rules = append(p.Rules, rule)
	}

	if err := s.SaveRepoPolicy(repo, p); err != nil {
		return nil, fmt.Errorf("persist grant: %w", err)
	}
	return &rule, nil
}

// Revoke disables the rule for (repo, agent), stamping the time and reason.
// The rule and its history are kept; only future eligibility is disabled.
func (s *Store) Revoke(repo, agent, reason string) (*Rule, error) {
	if agent == "" {
		return nil, ErrEmptyAgent
	}
	if reason == "" {
		return nil, ErrEmptyReason
	}

	path := s.repoPolicyPath(repo)
	l := s.fileLock(path)
	l.Lock()
	defer l.Unlock()

	p, err := s.LoadRepoPolicy(repo)
	if err != nil {
		return nil, err
	}

	rule := p.FindRule(agent)
	if rule == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoRule, agent, repo)
	}

	at := s.now()
	rule.Enabled = false
	rule.RevokedAt = &at
	rule.RevocationReason = reason

	if err := s.SaveRepoPolicy(repo, p); err != nil {
		return nil, fmt.Errorf("persist revocation: %w", err)
	}
	return rule, nil
}

// LoadGlobal loads the global policy aggregate. Missing or malformed files
// yield an empty policy list.
func (s *Store) LoadGlobal() (*GlobalConfig, error) {
	var c GlobalConfig
	if err := readJSON(s.globalPolicyPath(), &c); err != nil {
		c = GlobalConfig{}
	}
	return &c, nil
}

// SaveGlobal writes the global policy aggregate.
func (s *Store) SaveGlobal(c *GlobalConfig) error {
	return writeJSON(s.globalPolicyPath(), c)
}

// UpsertGlobalPolicy inserts or replaces a policy matched by its scope key
// (agentName, allowedCodes, appliesTo).
func (s *Store) UpsertGlobalPolicy(policy GlobalPolicy) error {
	if policy.AgentName == "" {
		return ErrEmptyAgent
	}
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = s.now()
	}

	path := s.globalPolicyPath()
	l := s.fileLock(path)
	l.Lock()
	defer l.Unlock()

	c, err := s.LoadGlobal()
	if err != nil {
		return err
	}

	replaced := false
	for i := range c.Policies {
		if c.Policies[i].sameScope(&policy) {
			c.Policies[i] = policy
			replaced = true
			break
		}
	}
	if !replaced {
		c.Policies = append(c.Policies, policy)
	}

	if err := s.SaveGlobal(c); err != nil {
		return fmt.Errorf("persist global policy: %w", err)
	}
	return nil
}

// normalizeRepoPolicy fills zero-valued defaults so stored aggregates always
// carry explicit thresholds.
func normalizeRepoPolicy(p *RepoPolicy) {
	d := &p.GlobalDefaults
	if d.MinConsecutiveCleanMerges == 0 {
		d.MinConsecutiveCleanMerges = DefaultMinConsecutiveCleanMerges
	}
	if d.MinValidationPassRate == 0 {
		d.MinValidationPassRate = DefaultMinValidationPassRate
	}
	if d.MinTotalRuns == 0 {
		d.MinTotalRuns = DefaultMinTotalRuns
	}
	if !d.MaxSeverity.Valid() {
		d.MaxSeverity = DefaultMaxSeverity
	}
}

// readJSON loads a JSON file into out.
func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// writeJSON writes v to path via temp file + atomic rename.
func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath) //nolint:errcheck // cleanup in error path
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("write content: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}

	success = true
	return nil
}
