package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ai-app-builder/internal/ai"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/secrets"
	"ai-app-builder/internal/store"
)

// Status is the connection state of a stored key.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Source tells where a key came from.
type Source string

const (
	SourceStored      Source = "stored"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

const msgUndecryptable = "Stored key was encrypted with a different master key. Save it again."

// State is what the settings panel shows for one service. The key itself
// never leaves the package unmasked.
type State struct {
	Service    Service    `json:"service"`
	Masked     string     `json:"masked"`
	Status     Status     `json:"status"`
	Source     Source     `json:"source"`
	Message    string     `json:"message,omitempty"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
}

// Store persists encrypted keys. *store.Database implements it.
type Store interface {
	SaveAPIKey(ctx context.Context, rec *store.APIKeyRecord) error
	GetAPIKey(ctx context.Context, service string) (*store.APIKeyRecord, error)
	ListAPIKeys(ctx context.Context) ([]store.APIKeyRecord, error)
	UpdateAPIKeyStatus(ctx context.Context, service, status, message string, at time.Time) error
	DeleteAPIKey(ctx context.Context, service string) error
}

// Settings manages the stored integration keys.
type Settings struct {
	store    Store
	secrets  *secrets.Manager
	verifier *Verifier
	env      map[Service]string
	now      func() time.Time
	logger   *zap.Logger
}

// NewSettings creates the settings service. env holds keys from the
// process environment, used when nothing is stored for a service.
func NewSettings(st Store, sm *secrets.Manager, v *Verifier, env map[Service]string, logger *zap.Logger) *Settings {
	fallback := make(map[Service]string, len(env))
	for s, k := range env {
		if k != "" {
			fallback[s] = k
		}
	}
	return &Settings{
		store:    st,
		secrets:  sm,
		verifier: v,
		env:      fallback,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logging.OrDefault(logger).Named("settings"),
	}
}

// Put cleans, encrypts and stores key for service. The stored key
// starts disconnected until it is verified.
func (s *Settings) Put(ctx context.Context, service Service, key string) (State, error) {
	if !service.valid() {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	key = ai.NormalizeAPIKey(key)
	if key == "" {
		return State{}, ErrKeyRequired
	}

	sealed, err := s.secrets.Encrypt(string(service), key)
	if err != nil {
		return State{}, fmt.Errorf("failed to encrypt %s key: %w", service, err)
	}
	rec := &store.APIKeyRecord{
		Service:     string(service),
		Ciphertext:  sealed.Ciphertext,
		Salt:        sealed.Salt,
		Fingerprint: sealed.Fingerprint,
		Masked:      Mask(key),
		Status:      string(StatusDisconnected),
	}
	if err := s.store.SaveAPIKey(ctx, rec); err != nil {
		return State{}, err
	}

	s.logger.Info("api key stored", zap.String("service", string(service)))
	return stateFromRecord(rec), nil
}

// List returns one state per supported service.
func (s *Settings) List(ctx context.Context) ([]State, error) {
	recs, err := s.store.ListAPIKeys(ctx)
	if err != nil {
		return nil, err
	}
	stored := make(map[Service]*store.APIKeyRecord, len(recs))
	for i := range recs {
		stored[Service(recs[i].Service)] = &recs[i]
	}

	out := make([]State, 0, len(Services))
	for _, svc := range Services {
		switch rec, ok := stored[svc]; {
		case ok:
			out = append(out, stateFromRecord(rec))
		case s.env[svc] != "":
			out = append(out, State{Service: svc, Masked: Mask(s.env[svc]), Status: StatusDisconnected, Source: SourceEnvironment})
		default:
			out = append(out, State{Service: svc, Status: StatusDisconnected, Source: SourceNone})
		}
	}
	return out, nil
}

// Delete removes the stored key of service.
func (s *Settings) Delete(ctx context.Context, service Service) error {
	if !service.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	return s.store.DeleteAPIKey(ctx, string(service))
}

// Verify checks key for service. With an empty key the stored key is
// used, then the environment key. When the stored key is the one checked
// its status is updated.
func (s *Settings) Verify(ctx context.Context, service Service, key string) (Result, error) {
	if !service.valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}

	fromStore := false
	if key != "" {
		if stored, err := s.storedKey(ctx, service); err == nil && stored == key {
			fromStore = true
		}
	} else {
		stored, err := s.storedKey(ctx, service)
		switch {
		case errors.Is(err, store.ErrNotFound):
			key = s.env[service]
		case errors.Is(err, secrets.ErrDecryptionFailed):
			return Result{Success: false, Message: msgUndecryptable}, nil
		case err != nil:
			return Result{}, err
		default:
			key, fromStore = stored, true
		}
	}

	res, err := s.verifier.Verify(ctx, service, key)
	if err != nil {
		return Result{}, err
	}
	if fromStore {
		s.record(ctx, service, res)
	}
	return res, nil
}

// VerifyAll verifies every stored or environment key concurrently.
func (s *Settings) VerifyAll(ctx context.Context) (map[Service]Result, error) {
	recs, err := s.store.ListAPIKeys(ctx)
	if err != nil {
		return nil, err
	}
	targets := make(map[Service]struct{}, len(Services))
	for _, rec := range recs {
		targets[Service(rec.Service)] = struct{}{}
	}
	for svc := range s.env {
		targets[svc] = struct{}{}
	}

	var (
		mu      sync.Mutex
		results = make(map[Service]Result, len(targets))
	)
	g, gctx := errgroup.WithContext(ctx)
	for svc := range targets {
		if !svc.valid() {
			continue
		}
		svc := svc
		g.Go(func() error {
			res, err := s.Verify(gctx, svc, "")
			if err != nil {
				return fmt.Errorf("failed to verify %s: %w", svc, err)
			}
			mu.Lock()
			results[svc] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Settings) storedKey(ctx context.Context, service Service) (string, error) {
	rec, err := s.store.GetAPIKey(ctx, string(service))
	if err != nil {
		return "", err
	}
	sealed := secrets.Sealed{Ciphertext: rec.Ciphertext, Salt: rec.Salt, Fingerprint: rec.Fingerprint}
	if rec.Fingerprint != "" {
		same, err := s.secrets.SameKey(string(service), sealed)
		if err != nil {
			return "", err
		}
		if !same {
			return "", secrets.ErrDecryptionFailed
		}
	}
	return s.secrets.Decrypt(string(service), sealed)
}

func (s *Settings) record(ctx context.Context, service Service, res Result) {
	status := StatusDisconnected
	if res.Success {
		status = StatusConnected
	}
	if err := s.store.UpdateAPIKeyStatus(ctx, string(service), string(status), res.Message, s.now()); err != nil {
		s.logger.Warn("failed to record key status",
			zap.String("service", string(service)),
			zap.Error(err),
		)
	}
}

func stateFromRecord(rec *store.APIKeyRecord) State {
	status := Status(rec.Status)
	if status != StatusConnected {
		status = StatusDisconnected
	}
	return State{
		Service:    Service(rec.Service),
		Masked:     rec.Masked,
		Status:     status,
		Source:     SourceStored,
		Message:    rec.Message,
		VerifiedAt: rec.VerifiedAt,
	}
}
