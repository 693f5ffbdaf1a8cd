package sdk

import "context"

// UserAPI is the client-side contract for the user guard. Both the remote
// HTTP client and the local embedded service implement it, so an
// application does not care which mode it is running in.
type UserAPI interface {
	// Create submits a signup write-set and returns the new record's ID.
	Create(ctx context.Context, attrs map[string]any) (string, error)
	// Get returns the record's attributes, filtered to the caller's role.
	Get(ctx context.Context, id string) (map[string]any, error)
	// List returns every record's role-filtered view, keyed by ID.
	// Only administrators hold the read_all grant.
	List(ctx context.Context) (map[string]map[string]any, error)
	// Update applies a write-set to one record.
	Update(ctx context.Context, id string, attrs map[string]any) error
	// Delete removes one record.
	Delete(ctx context.Context, id string) error
	// ConfirmKey submits a confirmation key for the record's secret.
	ConfirmKey(ctx context.Context, id string, key string) error
}
