package sdk

import (
	"context"
	"os"
	"strings"

	"github.com/celerix-dev/celerix-guard/internal/engine"
	"github.com/celerix-dev/celerix-guard/internal/users"
	"github.com/celerix-dev/celerix-guard/pkg/policy"
)

// New initializes the guard API based on the environment.
// If CELERIX_GUARD_ADDR points at a daemon the remote client is used;
// otherwise an embedded guard runs over the local data directory. The
// acting identity comes from CELERIX_GUARD_ACTOR / CELERIX_GUARD_GROUPS.
func New(dataDir string) (UserAPI, error) {
	actor := os.Getenv("CELERIX_GUARD_ACTOR")
	var groups []string
	if raw := os.Getenv("CELERIX_GUARD_GROUPS"); raw != "" {
		groups = strings.Split(raw, ",")
	}

	if addr := os.Getenv("CELERIX_GUARD_ADDR"); addr != "" {
		return NewClient(addr, WithActor(actor, groups...)), nil
	}

	p := policy.Principal{ID: actor, Groups: groups, Authenticated: actor != ""}
	return Embedded(dataDir, p)
}

// Embedded runs the guard in-process over a local data directory, acting
// as the given principal. It uses the same engine the daemon uses.
func Embedded(dataDir string, p policy.Principal, opts ...users.Option) (UserAPI, error) {
	persister, err := engine.NewPersistence(dataDir)
	if err != nil {
		return nil, err
	}
	initialData, err := persister.LoadAll()
	if err != nil {
		return nil, err
	}
	svc, err := users.NewService(engine.NewMemStore(initialData, persister), opts...)
	if err != nil {
		return nil, err
	}
	return &Local{svc: svc, principal: p}, nil
}

// Local adapts the in-process service to the UserAPI interface.
type Local struct {
	svc       *users.Service
	principal policy.Principal
}

func (l *Local) Create(ctx context.Context, attrs map[string]any) (string, error) {
	rec, err := l.svc.Create(ctx, l.principal, attrs)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (l *Local) Get(ctx context.Context, id string) (map[string]any, error) {
	return l.svc.Get(ctx, l.principal, id)
}

func (l *Local) List(ctx context.Context) (map[string]map[string]any, error) {
	return l.svc.List(ctx, l.principal)
}

func (l *Local) Update(ctx context.Context, id string, attrs map[string]any) error {
	_, err := l.svc.Update(ctx, l.principal, id, attrs)
	return err
}

func (l *Local) Delete(ctx context.Context, id string) error {
	return l.svc.Delete(ctx, l.principal, id)
}

func (l *Local) ConfirmKey(ctx context.Context, id string, key string) error {
	return l.svc.ConfirmKey(ctx, l.principal, id, key)
}
