package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	DefaultKeychainService = "Claude Code-credentials"
	TokenEnvVar            = "CLAUDE_CODE_OAUTH_TOKEN"
)

// SecretStore produces the raw credentials blob.
type SecretStore interface {
	Name() string
	Lookup(ctx context.Context) ([]byte, error)
}

// CommandStore runs an external command whose stdout is the blob.
type CommandStore struct {
	name string
	args []string
}

// NewKeychainStore reads the generic password stored under service in the
// macOS keychain.
func NewKeychainStore(service string) *CommandStore {
	return NewCommandStore("security", "find-generic-password", "-s", service, "-w")
}

func NewCommandStore(name string, args ...string) *CommandStore {
	return &CommandStore{name: name, args: args}
}

func (s *CommandStore) Name() string {
	return "command:" + s.name
}

func (s *CommandStore) Lookup(ctx context.Context) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.name, s.args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%w: %s: %v", ErrLookupFailed, s.name, err)
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrLookupFailed, s.name, err, msg)
	}
	return bytes.TrimSpace(out), nil
}

// FileStore reads a credentials JSON file such as ~/.claude/.credentials.json.
type FileStore struct {
	path string
	log  *zap.Logger
}

func NewFileStore(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, log: log}
}

// DefaultCredentialsPath is where the Claude CLI keeps credentials on Linux.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".claude", ".credentials.json"), nil
}

func (s *FileStore) Name() string {
	return "file:" + s.path
}

func (s *FileStore) Lookup(context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read credentials: %v", ErrLookupFailed, err)
	}
	return data, nil
}

// Watch calls onChange whenever the credentials file is written or
// replaced. It watches the parent directory so atomic renames are seen.
// Watch blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				s.log.Debug("credentials file changed", zap.String("op", ev.Op.String()))
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("credentials watcher error", zap.Error(err))
		}
	}
}

// EnvStore exposes a raw token from an environment variable as a blob with
// a top-level accessToken field.
type EnvStore struct {
	key string
}

func NewEnvStore(key string) *EnvStore {
	return &EnvStore{key: key}
}

func (s *EnvStore) Name() string {
	return "env:" + s.key
}

func (s *EnvStore) Lookup(context.Context) ([]byte, error) {
	token := strings.TrimSpace(os.Getenv(s.key))
	if token == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrLookupFailed, s.key)
	}
	return json.Marshal(map[string]string{"accessToken": token})
}

// ChainStore tries each store in order and returns the first blob found.
type ChainStore []SecretStore

func (c ChainStore) Name() string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

func (c ChainStore) Lookup(ctx context.Context) ([]byte, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: no credential stores configured", ErrLookupFailed)
	}
	var errs []error
	for _, s := range c {
		blob, err := s.Lookup(ctx)
		if err == nil {
			return blob, nil
		}
		errs = append(errs, err)
	}
	return nil, chainError(errs)
}

// chainError joins store failures on one line; the message ends up in a
// single menu item.
type chainError []error

func (e chainError) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e chainError) Unwrap() []error {
	return e
}

// DefaultStores returns the lookup order for source "auto": the env var,
// then the keychain on macOS, then the credentials file.
func DefaultStores(service, file string, log *zap.Logger) ChainStore {
	stores := ChainStore{NewEnvStore(TokenEnvVar)}
	if runtime.GOOS == "darwin" {
		stores = append(stores, NewKeychainStore(service))
	}
	return append(stores, NewFileStore(file, log))
}

type credentialsBlob struct {
	ClaudeAiOauth struct {
		AccessToken string `json:"accessToken"`
	} `json:"claudeAiOauth"`
	AccessToken string `json:"accessToken"`
}

// ParseToken extracts the bearer token from a credentials blob, preferring
// claudeAiOauth.accessToken over the top-level accessToken.
func ParseToken(blob []byte) (string, error) {
	var creds credentialsBlob
	if err := json.Unmarshal(blob, &creds); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if t := strings.TrimSpace(creds.ClaudeAiOauth.AccessToken); t != "" {
		return t, nil
	}
	if t := strings.TrimSpace(creds.AccessToken); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("%w: no accessToken found", ErrMalformed)
}

// Provider caches the bearer token read from a SecretStore. The token is
// loaded lazily and replaced only on a forced refresh or after MarkStale.
type Provider struct {
	store SecretStore
	log   *zap.Logger

	mu    sync.Mutex
	token string
	stale atomic.Bool
}

func NewProvider(store SecretStore, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{store: store, log: log}
}

// Token returns the cached token unless force is set, the cache is empty,
// or the cache was marked stale. A forced call discards the cached token
// first, so a token the API rejected is never handed out again even when
// the re-read fails. A failed stale re-read keeps the cached token.
func (p *Provider) Token(ctx context.Context, force bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if force {
		p.token = ""
	}
	stale := p.stale.Swap(false)
	if p.token != "" && !stale {
		return p.token, nil
	}

	blob, err := p.store.Lookup(ctx)
	if err != nil {
		if stale {
			p.stale.Store(true)
		}
		return "", err
	}
	token, err := ParseToken(blob)
	if err != nil {
		if stale {
			p.stale.Store(true)
		}
		return "", err
	}
	p.log.Debug("loaded token", zap.String("store", p.store.Name()), zap.Bool("forced", force))
	p.token = token
	return token, nil
}

// MarkStale makes the next Token call re-read the store. It is safe to call
// from any goroutine.
func (p *Provider) MarkStale() {
	p.stale.Store(true)
}
