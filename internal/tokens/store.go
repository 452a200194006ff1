package tokens

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dataxfi/datax-go/internal/constants"
)

// Token is cached token metadata.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals uint8  `json:"decimals"`
}

type storeFile struct {
	// chain id -> checksummed address -> token
	Chains map[string]map[string]Token `json:"chains"`
	Schema int                         `json:"schema"`
}

// Store persists token metadata as plain JSON so decimals survive restarts.
type Store struct {
	mu     sync.Mutex
	path   string
	loaded bool
	data   storeFile
}

// NewStore returns a store backed by path. The file is read on first use.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		data: storeFile{Schema: constants.SchemaV1, Chains: map[string]map[string]Token{}},
	}
}

// OpenDefaultStore picks the first existing candidate under the user config
// dir, else the first candidate as the target path.
func OpenDefaultStore() (*Store, error) {
	candidates, err := ConfigPathCandidates(constants.AppName, constants.TokensCacheFile)
	if err != nil {
		return nil, err
	}
	for _, p := range candidates {
		if exists(p) {
			return NewStore(p), nil
		}
	}
	return NewStore(candidates[0]), nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get(chainID uint64, addr common.Address) (Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return Token{}, false, err
	}
	t, ok := s.data.Chains[chainKey(chainID)][addr.Hex()]
	return t, ok, nil
}

// Put records t and rewrites the file.
func (s *Store) Put(chainID uint64, t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	if !common.IsHexAddress(t.Address) {
		return errors.Newf("invalid token address %q", t.Address)
	}
	t.Address = common.HexToAddress(t.Address).Hex()

	ck := chainKey(chainID)
	if s.data.Chains[ck] == nil {
		s.data.Chains[ck] = map[string]Token{}
	}
	s.data.Chains[ck][t.Address] = t
	return s.persistLocked()
}

// List returns the cached tokens of a chain.
func (s *Store) List(chainID uint64) ([]Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	byAddr := s.data.Chains[chainKey(chainID)]
	out := make([]Token, 0, len(byAddr))
	for _, t := range byAddr {
		out = append(out, t)
	}
	return out, nil
}

// loadLocked reads the file once. A file that cannot be read or decoded is
// reported on every call and never overwritten, so a corrupt cache survives
// for inspection instead of being replaced by the next Put.
func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}
	if !exists(s.path) {
		s.loaded = true
		return nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return errors.Wrap(err, "read tokens file")
	}
	var f storeFile
	if err := json.Unmarshal(b, &f); err != nil {
		return errors.Wrap(err, "unmarshal tokens file")
	}
	if f.Schema == 0 {
		f.Schema = constants.SchemaV1
	}

	// skip entries with bad addresses rather than failing the whole cache
	out := storeFile{Schema: f.Schema, Chains: map[string]map[string]Token{}}
	for ck, byAddr := range f.Chains {
		for addrKey, t := range byAddr {
			if !common.IsHexAddress(addrKey) {
				continue
			}
			addr := common.HexToAddress(addrKey).Hex()
			t.Address = addr
			if out.Chains[ck] == nil {
				out.Chains[ck] = map[string]Token{}
			}
			out.Chains[ck][addr] = t
		}
	}
	s.data = out
	s.loaded = true
	return nil
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), constants.DirectoryPerm); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(s.path))
	}
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal tokens file")
	}
	return atomicWriteFile(s.path, b, constants.FilePerm)
}

// ConfigPathCandidates returns config paths to try, in priority order.
// DATAX_ENV adds a local/ or develop/ subfolder.
func ConfigPathCandidates(app, filename string) ([]string, error) {
	if app == "" {
		return nil, errors.New("app must not be empty")
	}
	if filename == "" {
		return nil, errors.New("filename must not be empty")
	}
	envFolder, err := envFolder()
	if err != nil {
		return nil, err
	}

	var paths []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}
	homeStyle := func(home string) string {
		return filepath.Join(home, ".config", app, envFolder, filename)
	}

	if realHome := os.Getenv("SNAP_REAL_HOME"); realHome != "" {
		add(homeStyle(realHome))
	}
	if home := os.Getenv("HOME"); home != "" {
		add(homeStyle(home))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		add(filepath.Join(dir, app, envFolder, filename))
	} else if len(paths) == 0 {
		return nil, errors.Wrap(err, "UserConfigDir")
	}
	return paths, nil
}

func envFolder() (string, error) {
	raw := strings.TrimSpace(os.Getenv("DATAX_ENV"))
	switch strings.ToLower(raw) {
	case "", "prod", "production":
		return "", nil
	case "local":
		return "local", nil
	case "dev", "develop", "development":
		return "develop", nil
	default:
		return "", errors.Newf("invalid DATAX_ENV %q (allowed: local, develop, empty)", raw)
	}
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return errors.Wrap(err, "write tmp")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "rename")
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func chainKey(id uint64) string { return strconv.FormatUint(id, 10) }
