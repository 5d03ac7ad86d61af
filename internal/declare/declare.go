// Package declare is a thin ergonomic layer over a Manager's staged API,
// letting a caller declare a named hook once and refer to it by name
// afterwards: Define, Install, CallOriginal, Uninstall, InstallBySymbol.
// It mirrors the named-hook-table pattern of
// _examples/original_source/silkhook_kmod.c (a handful of file-scope
// struct instances, each wired up once and referenced by name through the
// rest of the module) translated into a reflection-based typed-slot
// registry rather than Go generics, matching hinako's own use of
// reflect/syscall.NewCallback to wire a typed Go function to a raw
// function pointer.
package declare

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vmsplit/armhook"
	"github.com/vmsplit/armhook/internal/platform"
)

var log = logrus.WithField("component", "declare")

// Slot is one named hook declaration: a function-typed variable whose
// underlying code pointer Install overwrites with the trampoline address,
// following the same trick hinako applies to syscall.Proc's unexported
// addr field (reflect.Value.UnsafeAddr into the first word of a func
// value rather than a struct field).
type Slot struct {
	name     string
	fnType   reflect.Type
	original reflect.Value // addressable Elem of the *original func pointer

	mgr *armhook.Manager
	rec *armhook.Record
}

// Table is a named collection of slots, analogous to the static hook
// structs silkhook_kmod.c declares at file scope.
type Table struct {
	mu     sync.Mutex
	mgr    *armhook.Manager
	byName map[string]*Slot
}

// NewTable returns an empty table backed by mgr.
func NewTable(mgr *armhook.Manager) *Table {
	return &Table{mgr: mgr, byName: make(map[string]*Slot)}
}

// Define declares a named hook: originalPtr must be a pointer to a
// func-typed variable (e.g. `var original func(int) int; t.Define("foo",
// &original)`); CallOriginal later invokes through that variable once
// Install has pointed its code at the trampoline.
func (t *Table) Define(name string, originalPtr interface{}) (*Slot, error) {
	v := reflect.ValueOf(originalPtr)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Func {
		return nil, armhook.NewInvalidArgument("declare: originalPtr must be a pointer to a func variable")
	}

	slot := &Slot{
		name:     name,
		fnType:   v.Elem().Type(),
		original: v.Elem(),
		mgr:      t.mgr,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byName[name]; exists {
		return nil, armhook.NewAlreadyHooked("declare: %q already defined", name)
	}
	t.byName[name] = slot
	return slot, nil
}

// Install wires target to detour through the named slot's Manager,
// writing the resulting trampoline's address into the slot's original
// func variable so CallOriginal (and any direct call through that
// variable) reaches the preserved original.
func (t *Table) Install(name string, target uintptr, detour interface{}) error {
	t.mu.Lock()
	slot, ok := t.byName[name]
	t.mu.Unlock()
	if !ok {
		return armhook.NewNotFound("declare: %q is not defined", name)
	}
	return slot.install(target, detour)
}

func (s *Slot) install(target uintptr, detour interface{}) error {
	dv := reflect.ValueOf(detour)
	if dv.Type() != s.fnType {
		return armhook.NewInvalidArgument("declare: %q: detour type %s does not match declared type %s", s.name, dv.Type(), s.fnType)
	}

	rec, callable, err := s.mgr.Hook(uint64(target), uint64(detourCodePointer(dv)))
	if err != nil {
		return err
	}
	s.rec = rec
	setFuncCodePointer(s.original, uintptr(callable))

	log.WithFields(logrus.Fields{"hook": s.name, "target": target}).Debug("declarative hook installed")
	return nil
}

// InstallBySymbol resolves name's target address through adapter and
// installs it in one step, the one-shot composite described for kernel
// builds in §6.
func (t *Table) InstallBySymbol(name, symbol string, detour interface{}, adapter platform.KernelAdapter) error {
	addr, err := adapter.ResolveSymbol(symbol)
	if err != nil {
		return err
	}
	return t.Install(name, addr, detour)
}

// CallOriginal invokes the named slot's preserved original through its
// trampoline, via the func variable Install repointed.
func (t *Table) CallOriginal(name string, args ...interface{}) ([]interface{}, error) {
	t.mu.Lock()
	slot, ok := t.byName[name]
	t.mu.Unlock()
	if !ok {
		return nil, armhook.NewNotFound("declare: %q is not defined", name)
	}
	// slot.rec, not slot.original's nilness, is the source of truth: Uninstall
	// repoints original at a freshly allocated funcval{fn: 0}, which reads as
	// non-nil to reflect even though its entry address is 0.
	if slot.rec == nil {
		return nil, armhook.NewInvalidState("declare: %q has not been installed", name)
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	out := slot.original.Call(in)
	results := make([]interface{}, len(out))
	for i, o := range out {
		results[i] = o.Interface()
	}
	return results, nil
}

// Uninstall reverses Install: the target's original bytes are restored
// and the trampoline is freed. The slot itself remains defined and may be
// re-installed.
func (t *Table) Uninstall(name string) error {
	t.mu.Lock()
	slot, ok := t.byName[name]
	t.mu.Unlock()
	if !ok {
		return armhook.NewNotFound("declare: %q is not defined", name)
	}
	if slot.rec == nil {
		return armhook.NewInvalidState("declare: %q has not been installed", name)
	}
	if err := slot.mgr.Unhook(slot.rec); err != nil {
		return err
	}
	slot.rec = nil
	setFuncCodePointer(slot.original, 0)
	log.WithField("hook", slot.name).Debug("declarative hook uninstalled")
	return nil
}
