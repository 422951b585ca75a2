// Package directory holds the users and servers a session knows about.
// Stored objects are replaced, never mutated, so a value returned by Get is
// a stable snapshot and must be treated as read-only.
package directory

import (
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/totegamma/chatkit"
)

type Users struct {
	cache *cache.Cache
	mu    sync.Mutex // serializes patches
}

func NewUsers() *Users {
	return &Users{cache: cache.New(cache.NoExpiration, 0)}
}

func (d *Users) Get(id string) (*chatkit.User, bool) {
	x, found := d.cache.Get(id)
	if !found {
		return nil, false
	}
	return x.(*chatkit.User), true
}

func (d *Users) Set(user *chatkit.User) {
	d.cache.Set(user.ID, user, cache.NoExpiration)
}

func (d *Users) Delete(id string) bool {
	_, found := d.cache.Get(id)
	d.cache.Delete(id)
	return found
}

func (d *Users) Len() int {
	return d.cache.ItemCount()
}

// Patch applies a partial user update. It reports false when the user is
// unknown.
func (d *Users) Patch(id string, patch chatkit.UserPatch, clear ...string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.Get(id)
	if !ok {
		return false
	}
	next := *current

	for _, field := range clear {
		switch field {
		case chatkit.RemoveUserDisplayName:
			next.DisplayName = nil
		case chatkit.RemoveUserAvatar:
			next.Avatar = nil
		}
	}
	if patch.Username != nil {
		next.Username = *patch.Username
	}
	if patch.DisplayName != nil {
		next.DisplayName = patch.DisplayName
	}
	if patch.Avatar != nil {
		next.Avatar = patch.Avatar
	}
	if patch.Online != nil {
		next.Online = *patch.Online
	}

	d.Set(&next)
	return true
}

type Servers struct {
	cache *cache.Cache
	mu    sync.Mutex // serializes patches
}

func NewServers() *Servers {
	return &Servers{cache: cache.New(cache.NoExpiration, 0)}
}

func (d *Servers) Get(id string) (*chatkit.Server, bool) {
	x, found := d.cache.Get(id)
	if !found {
		return nil, false
	}
	return x.(*chatkit.Server), true
}

func (d *Servers) Set(server *chatkit.Server) {
	d.cache.Set(server.ID, server, cache.NoExpiration)
}

func (d *Servers) Delete(id string) bool {
	_, found := d.cache.Get(id)
	d.cache.Delete(id)
	return found
}

func (d *Servers) Len() int {
	return d.cache.ItemCount()
}

func (d *Servers) update(id string, fn func(next *chatkit.Server)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.Get(id)
	if !ok {
		return false
	}
	next := *current
	next.Roles = current.Roles.Clone()
	fn(&next)
	d.Set(&next)
	return true
}

// Patch applies a partial server update.
func (d *Servers) Patch(id string, patch chatkit.ServerPatch, clear ...string) bool {
	return d.update(id, func(next *chatkit.Server) {
		for _, field := range clear {
			switch field {
			case chatkit.RemoveServerDescription:
				next.Description = nil
			case chatkit.RemoveServerIcon:
				next.Icon = nil
			}
		}
		if patch.Owner != nil {
			next.Owner = *patch.Owner
		}
		if patch.Name != nil {
			next.Name = *patch.Name
		}
		if patch.Description != nil {
			next.Description = patch.Description
		}
		if patch.Channels != nil {
			next.Channels = *patch.Channels
		}
		if patch.Icon != nil {
			next.Icon = patch.Icon
		}
	})
}

// PatchRole updates a role of a server, creating it at the end of the role
// table when it does not exist yet.
func (d *Servers) PatchRole(id, roleID string, patch chatkit.RolePatch, clear ...string) bool {
	return d.update(id, func(next *chatkit.Server) {
		if next.Roles == nil {
			next.Roles = chatkit.OrderedKVMap[chatkit.Role]{}
		}
		role, _ := next.Roles.Get(roleID)
		for _, field := range clear {
			if field == chatkit.RemoveRoleColour {
				role.Colour = nil
			}
		}
		if patch.Name != nil {
			role.Name = *patch.Name
		}
		if patch.Permissions != nil {
			role.Permissions = *patch.Permissions
		}
		if patch.Colour != nil {
			role.Colour = patch.Colour
		}
		if patch.Hoist != nil {
			role.Hoist = *patch.Hoist
		}
		if patch.Rank != nil {
			role.Rank = *patch.Rank
		}
		next.Roles.Set(roleID, role)
	})
}

func (d *Servers) DeleteRole(id, roleID string) bool {
	return d.update(id, func(next *chatkit.Server) {
		delete(next.Roles, roleID)
	})
}
