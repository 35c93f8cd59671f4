package common

import "errors"

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// PauseSet is a mutable PauseView keyed by module name.
type PauseSet struct {
	modules map[string]bool
}

func NewPauseSet() *PauseSet {
	return &PauseSet{modules: make(map[string]bool)}
}

func (p *PauseSet) SetPaused(module string, paused bool) {
	if p == nil {
		return
	}
	if p.modules == nil {
		p.modules = make(map[string]bool)
	}
	p.modules[module] = paused
}

func (p *PauseSet) IsPaused(module string) bool {
	if p == nil || p.modules == nil {
		return false
	}
	return p.modules[module]
}
