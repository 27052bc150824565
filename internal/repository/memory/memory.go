// Package memory holds map-backed implementations of the service stores.
// They back STORE_DRIVER=memory and the service tests; contents are lost
// on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository"
)

// Users is an in-memory user directory.
type Users struct {
	mu   sync.RWMutex
	byID map[string]model.User
}

func NewUsers(users ...model.User) *Users {
	u := &Users{byID: make(map[string]model.User, len(users))}
	for _, usr := range users {
		u.byID[usr.ID] = usr
	}
	return u
}

// Create adds a user, rejecting duplicate ids or usernames.
func (u *Users) Create(_ context.Context, usr model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byID[usr.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, existing := range u.byID {
		if strings.EqualFold(existing.Username, usr.Username) {
			return repository.ErrDuplicate
		}
	}
	u.byID[usr.ID] = usr
	return nil
}

func (u *Users) GetByID(_ context.Context, id string) (model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	usr, ok := u.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return usr, nil
}

func (u *Users) GetByUsername(_ context.Context, username string) (model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	username = strings.ToLower(strings.TrimSpace(username))
	for _, usr := range u.byID {
		if strings.ToLower(usr.Username) == username {
			return usr, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (u *Users) ListByRole(_ context.Context, role model.Role) ([]model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]model.User, 0)
	for _, usr := range u.byID {
		if usr.Role == role {
			out = append(out, usr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (u *Users) TOTPSecret(_ context.Context, userID string) (string, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	usr, ok := u.byID[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return usr.TOTPSecret, nil
}

func (u *Users) SetTOTPSecret(_ context.Context, userID, secret string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	usr.TOTPSecret = secret
	u.byID[userID] = usr
	return nil
}

// VaultItems is an in-memory vault item catalogue.
type VaultItems struct {
	mu    sync.RWMutex
	items map[string]model.VaultItem
}

func NewVaultItems(items ...model.VaultItem) *VaultItems {
	v := &VaultItems{items: make(map[string]model.VaultItem, len(items))}
	for _, it := range items {
		v.items[it.ID] = it
	}
	return v
}

func (v *VaultItems) Create(_ context.Context, item model.VaultItem) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.items[item.ID]; ok {
		return repository.ErrDuplicate
	}
	v.items[item.ID] = item
	return nil
}

func (v *VaultItems) GetByID(_ context.Context, id string) (model.VaultItem, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	it, ok := v.items[id]
	if !ok {
		return model.VaultItem{}, repository.ErrNotFound
	}
	return it, nil
}

func (v *VaultItems) List(_ context.Context) ([]model.VaultItem, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]model.VaultItem, 0, len(v.items))
	for _, it := range v.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}
