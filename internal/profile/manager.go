package profile

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/zadescoxp/Sahayak/internal/storage"
)

// ErrNotFound is returned when no document exists for the requested user.
var ErrNotFound = errors.New("user profile not found")

// UserStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type UserStore interface {
	UpsertUser(ctx context.Context, uid string, patch map[string]any) error
	GetUser(ctx context.Context, uid string) (storage.UserDocument, error)
}

// Manager reads and writes user profile documents. It holds no cache: every
// mode request sees the latest stored fields.
type Manager struct {
	store  UserStore
	logger *zap.Logger
}

func NewManager(store UserStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, logger: logger}
}

// Submit merges fields into the user's document. The uid and email keys are
// always overwritten with the verified values.
func (m *Manager) Submit(ctx context.Context, uid, email string, fields map[string]any) error {
	patch := make(map[string]any, len(fields)+2)
	maps.Copy(patch, fields)
	delete(patch, KeyID)
	patch[KeyUID] = uid
	patch[KeyEmail] = email

	if err := m.store.UpsertUser(ctx, uid, patch); err != nil {
		return fmt.Errorf("storing profile for %s: %w", uid, err)
	}
	m.logger.Debug("profile stored", zap.String("uid", uid), zap.Int("fields", len(patch)))
	return nil
}

// Document returns the raw stored fields for uid with the document id
// included as a string under "id".
func (m *Manager) Document(ctx context.Context, uid string) (map[string]any, error) {
	doc, err := m.get(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(doc.Fields)+1)
	maps.Copy(out, doc.Fields)
	out[KeyID] = doc.ID
	return out, nil
}

// Get returns the typed profile for uid.
func (m *Manager) Get(ctx context.Context, uid string) (Profile, error) {
	doc, err := m.get(ctx, uid)
	if err != nil {
		return Profile{}, err
	}
	p := FromFields(doc.Fields)
	if p.UID == "" {
		p.UID = uid
	}
	return p, nil
}

func (m *Manager) get(ctx context.Context, uid string) (storage.UserDocument, error) {
	doc, err := m.store.GetUser(ctx, uid)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.UserDocument{}, ErrNotFound
	}
	if err != nil {
		return storage.UserDocument{}, fmt.Errorf("loading profile for %s: %w", uid, err)
	}
	return doc, nil
}
