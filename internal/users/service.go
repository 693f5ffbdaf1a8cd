// Package users implements the lifecycle hooks for the user entity on
// top of the policy pipeline: uniqueness checks, secret issuance and
// rotation, key confirmation, and the confirmation notifications.
package users

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/celerix-dev/celerix-guard/internal/engine"
	"github.com/celerix-dev/celerix-guard/internal/vault"
	"github.com/celerix-dev/celerix-guard/pkg/policy"
	"github.com/celerix-dev/celerix-guard/pkg/schema"
)

const confirmationSubject = "Account Confirmation"

// Notifier dispatches out-of-band mail. Delivery is best-effort and never
// rolls back a committed record mutation.
type Notifier interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// Service guards the user collection. Every operation resolves the acting
// principal's role, enforces the entity's access tables, runs the
// validate/compute pipeline, and only then touches the store.
type Service struct {
	entity    *policy.Entity
	store     engine.DocumentStore
	mailer    Notifier
	secretKey []byte

	// mu serializes check-then-insert so two concurrent creations cannot
	// both pass the uniqueness gates.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithMailer wires the notification collaborator. Without it, no mail is
// dispatched.
func WithMailer(n Notifier) Option {
	return func(s *Service) { s.mailer = n }
}

// WithSecretKey enables AES-GCM encryption of record secrets at rest.
// The key must be 32 bytes.
func WithSecretKey(key []byte) Option {
	return func(s *Service) { s.secretKey = key }
}

// NewService builds the user guard over a document store. The entity
// declaration is validated once here, so a table referencing an unknown
// field or role fails at startup rather than at request time.
func NewService(store engine.DocumentStore, opts ...Option) (*Service, error) {
	s := &Service{entity: schema.User(), store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.secretKey != nil && len(s.secretKey) != 32 {
		return nil, fmt.Errorf("secret key must be 32 bytes, got %d", len(s.secretKey))
	}
	if err := s.entity.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Entity exposes the validated entity declaration (rate policy, field
// tables) to the transport layer.
func (s *Service) Entity() *policy.Entity { return s.entity }

// Create admits a new user record: authorization, pipeline, uniqueness on
// username and email, secret issuance, persistence, then the confirmation
// notification. A failed gate leaves the store untouched and sends nothing.
func (s *Service) Create(ctx context.Context, p policy.Principal, attrs map[string]any) (*policy.Record, error) {
	writeSet := toFieldSet(attrs)
	role := policy.ResolveRole(p, nil)
	if err := s.entity.AuthorizeWrite(role, policy.ActionCreate, writeSet); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	final, err := s.entity.Run(nil, writeSet, true)
	if err != nil {
		return nil, err
	}

	username, _ := final[schema.FieldUsername].(string)
	if err := s.checkUnique(schema.FieldUsername, username, ""); err != nil {
		return nil, err
	}
	email, _ := final[schema.FieldEmail].(string)
	if err := s.checkUnique(schema.FieldEmail, email, ""); err != nil {
		return nil, err
	}

	secret := vault.NewSecret()
	stored, err := s.storedSecret(secret)
	if err != nil {
		return nil, err
	}
	final[schema.FieldSecret] = stored

	rec := policy.NewRecord(uuid.NewString())
	for k, v := range final {
		rec.Attrs[k] = v
	}
	if err := s.store.Insert(schema.UsersCollection, rec.ID, fromFieldSet(final)); err != nil {
		return nil, err
	}
	rec.Attrs[schema.FieldSecret] = secret

	s.sendConfirmation(ctx, email, secret)
	return rec, nil
}

// Update applies an admitted write-set to an existing record. Changing
// email to a new distinct value clears any outstanding key, reissues the
// secret, and triggers a re-confirmation; a key confirmation in flight
// for the old secret becomes permanently unusable.
func (s *Service) Update(ctx context.Context, p policy.Principal, id string, attrs map[string]any) (*policy.Record, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, err
	}
	writeSet := toFieldSet(attrs)
	role := policy.ResolveRole(p, rec)
	if err := s.entity.AuthorizeWrite(role, policy.ActionUpdate, writeSet); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	final, err := s.entity.Run(rec, writeSet, false)
	if err != nil {
		return nil, err
	}

	if username, ok := final[schema.FieldUsername].(string); ok {
		if err := s.checkUnique(schema.FieldUsername, username, rec.ID); err != nil {
			return nil, err
		}
	}

	var rotatedSecret, rotatedEmail string
	if email, ok := final[schema.FieldEmail].(string); ok {
		if err := s.checkUnique(schema.FieldEmail, email, rec.ID); err != nil {
			return nil, err
		}
		if email != rec.String(schema.FieldEmail) {
			// Sensitive change: revoke the outstanding key and start a
			// fresh confirmation round against a new secret.
			rotatedSecret = vault.NewSecret()
			rotatedEmail = email
			stored, err := s.storedSecret(rotatedSecret)
			if err != nil {
				return nil, err
			}
			final[schema.FieldKey] = nil
			final[schema.FieldSecret] = stored
		}
	}

	if err := s.store.Update(schema.UsersCollection, rec.ID, fromFieldSet(final)); err != nil {
		return nil, err
	}

	for k, v := range final {
		if v == nil {
			delete(rec.Attrs, k)
			continue
		}
		rec.Attrs[k] = v
	}
	if rotatedSecret != "" {
		rec.Attrs[schema.FieldSecret] = rotatedSecret
		s.sendConfirmation(ctx, rotatedEmail, rotatedSecret)
	}
	return rec, nil
}

// ConfirmKey runs a proposed key through the standard pipeline, so it
// inherits the same atomic-failure semantics as any other write. A nil
// value or the no-op marker is accepted silently; a wrong key fails with
// policy.ErrInvalidKey and triggers a best-effort attempt notification.
func (s *Service) ConfirmKey(ctx context.Context, p policy.Principal, id string, key any) error {
	rec, err := s.load(id)
	if err != nil {
		return err
	}
	writeSet := map[policy.FieldName]any{schema.FieldKey: key}
	role := policy.ResolveRole(p, rec)
	if err := s.entity.AuthorizeWrite(role, policy.ActionUpdate, writeSet); err != nil {
		return err
	}

	final, err := s.entity.Run(rec, writeSet, false)
	if err != nil {
		if errors.Is(err, policy.ErrInvalidKey) {
			s.sendAttemptWarning(ctx, rec.String(schema.FieldEmail))
		}
		return err
	}
	return s.store.Update(schema.UsersCollection, rec.ID, fromFieldSet(final))
}

// Get returns the record's attributes filtered to what the caller's role
// may read. Attributes not granted to the role are dropped, not errors.
func (s *Service) Get(_ context.Context, p policy.Principal, id string) (map[string]any, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, err
	}
	role := policy.ResolveRole(p, rec)
	if err := s.entity.Authorize(role, policy.ActionRead); err != nil {
		return nil, err
	}
	return fromFieldSet(s.entity.View(rec, role)), nil
}

// List returns every record's role-filtered view. The read_all gate is
// checked against the caller's standing role; each record is then
// filtered with the role resolved against that record, so an
// administrator still sees their own record as self.
func (s *Service) List(_ context.Context, p policy.Principal) (map[string]map[string]any, error) {
	if err := s.entity.Authorize(policy.ResolveRole(p, nil), policy.ActionReadAll); err != nil {
		return nil, err
	}
	docs, err := s.store.List(schema.UsersCollection)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]any, len(docs))
	for id, doc := range docs {
		rec := &policy.Record{ID: id, Attrs: toFieldSet(doc)}
		role := policy.ResolveRole(p, rec)
		out[id] = fromFieldSet(s.entity.View(rec, role))
	}
	return out, nil
}

// Delete removes a record, subject to the entity-level delete grant.
func (s *Service) Delete(_ context.Context, p policy.Principal, id string) error {
	rec, err := s.load(id)
	if err != nil {
		return err
	}
	role := policy.ResolveRole(p, rec)
	if err := s.entity.Authorize(role, policy.ActionDelete); err != nil {
		return err
	}
	return s.store.Delete(schema.UsersCollection, rec.ID)
}

// checkUnique fails with a DuplicateError when a distinct record already
// holds the value.
func (s *Service) checkUnique(attr policy.FieldName, value, selfID string) error {
	if value == "" {
		return nil
	}
	id, _, err := s.store.FindOne(schema.UsersCollection, map[string]any{string(attr): value})
	if errors.Is(err, engine.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if id == selfID {
		return nil
	}
	return &policy.DuplicateError{Attr: attr, Value: value}
}

// load fetches a record and recovers the plaintext secret when secrets
// are encrypted at rest.
func (s *Service) load(id string) (*policy.Record, error) {
	doc, err := s.store.Get(schema.UsersCollection, id)
	if err != nil {
		return nil, err
	}
	rec := &policy.Record{ID: id, Attrs: toFieldSet(doc)}
	if s.secretKey != nil {
		if sealed := rec.String(schema.FieldSecret); sealed != "" {
			secret, err := vault.Decrypt(sealed, s.secretKey)
			if err != nil {
				return nil, fmt.Errorf("unsealing secret for %s: %w", id, err)
			}
			rec.Attrs[schema.FieldSecret] = secret
		}
	}
	return rec, nil
}

func (s *Service) storedSecret(secret string) (string, error) {
	if s.secretKey == nil {
		return secret, nil
	}
	return vault.Encrypt(secret, s.secretKey)
}

// sendConfirmation mails the key digest the holder must echo back.
// Dispatch happens strictly after the record change is committed.
func (s *Service) sendConfirmation(ctx context.Context, email, secret string) {
	if s.mailer == nil || email == "" {
		return
	}
	if err := s.mailer.SendMail(ctx, email, confirmationSubject, vault.KeyDigest(secret)); err != nil {
		log.Printf("Warning: failed to send confirmation email to %s: %v", email, err)
	}
}

func (s *Service) sendAttemptWarning(ctx context.Context, email string) {
	if s.mailer == nil || email == "" {
		return
	}
	body := "A key authorization attempt has failed."
	if err := s.mailer.SendMail(ctx, email, confirmationSubject, body); err != nil {
		log.Printf("Warning: failed to send authorization attempt email to %s: %v", email, err)
	}
}

func toFieldSet(attrs map[string]any) map[policy.FieldName]any {
	out := make(map[policy.FieldName]any, len(attrs))
	for k, v := range attrs {
		out[policy.FieldName(k)] = v
	}
	return out
}

func fromFieldSet(vals map[policy.FieldName]any) map[string]any {
	out := make(map[string]any, len(vals))
	for k, v := range vals {
		out[string(k)] = v
	}
	return out
}
