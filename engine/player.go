package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/subchen/go-trylock/v2"
)

// ErrLockTimeout is returned when the equipped-item lock could not be taken
// before the context expired.
var ErrLockTimeout = errors.New("equipped item lock timeout")

// ScopeFlags are the optic capabilities of a weapon.
type ScopeFlags struct {
	Thermal     bool
	NightVision bool
	PIP         bool
}

// Any reports whether the weapon has any optic.
func (f ScopeFlags) Any() bool { return f.Thermal || f.NightVision || f.PIP }

// Weapon is an equippable item.
type Weapon struct {
	Name     string
	Keywords []string
	Scope    ScopeFlags
}

// HasKeyword reports whether w carries kw.
func (w *Weapon) HasKeyword(kw string) bool {
	for _, k := range w.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

type rwTryLocker interface {
	Lock()
	Unlock()
	RTryLock(ctx context.Context) bool
	RUnlock()
}

// Player is the controlled actor: a 3D model and an equipped item array
// shared with other threads.
type Player struct {
	Root3D *Node

	equipLock rwTryLocker
	equipped  []*Weapon
}

// NewPlayer creates a player whose 3D model is root.
func NewPlayer(root *Node) *Player {
	return &Player{Root3D: root, equipLock: trylock.New()}
}

// Equip places w in the default slot (0), replacing what was there.
func (p *Player) Equip(w *Weapon) {
	p.equipLock.Lock()
	defer p.equipLock.Unlock()
	if len(p.equipped) == 0 {
		p.equipped = append(p.equipped, w)
	} else {
		p.equipped[0] = w
	}
}

// Unequip empties the equipped item array.
func (p *Player) Unequip() {
	p.equipLock.Lock()
	defer p.equipLock.Unlock()
	p.equipped = p.equipped[:0]
}

// EquippedDefault returns a copy of the weapon in the default slot, read
// under the equipped-item lock. It returns nil without error when nothing is
// equipped.
func (p *Player) EquippedDefault(ctx context.Context) (*Weapon, error) {
	if !p.equipLock.RTryLock(ctx) {
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	}
	defer p.equipLock.RUnlock()
	if len(p.equipped) == 0 || p.equipped[0] == nil {
		return nil, nil
	}
	w := *p.equipped[0]
	w.Keywords = append([]string(nil), w.Keywords...)
	return &w, nil
}

// GetByName searches the player's 3D model.
func (p *Player) GetByName(name string) Object {
	if p == nil || p.Root3D == nil {
		return nil
	}
	return p.Root3D.GetObjectByName(name)
}
