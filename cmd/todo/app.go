package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sghaida/modi/di"
	"github.com/sghaida/modi/examples/todo"
	"github.com/sghaida/modi/examples/todo/config"
	"github.com/sghaida/modi/internal/logging"
	"github.com/sghaida/modi/internal/logging/logfields"
	"github.com/sghaida/modi/snapshot"
)

// app is the state shared by all subcommands for one run.
type app struct {
	cfg config.Config
	inj *di.Injector
	vm  *todo.TodoViewModel
	log logrus.FieldLogger

	dirty       bool
	unsubscribe func()
}

// open resolves the view model, loads the state file into its store and
// starts tracking changes.
func (a *app) open(cfg config.Config) error {
	a.cfg = cfg
	logging.SetLevel(cfg.LogLevel)
	a.log = logging.Subsystem("todo").WithField(logfields.File, cfg.StateFile)

	vm, err := di.Get[todo.TodoViewModel](a.inj, di.Props{"Title": "todo (" + cfg.Env + ")"})
	if err != nil {
		return err
	}
	a.vm = vm

	if err := a.load(); err != nil {
		return err
	}

	a.unsubscribe, err = snapshot.OnSnapshot(vm.Store, func(s snapshot.Snapshot) {
		a.dirty = true
		a.log.WithField(logfields.Model, "todoStore").Debug("State changed")
	})
	return err
}

func (a *app) load() error {
	data, err := os.ReadFile(a.cfg.StateFile)
	if errors.Is(err, fs.ErrNotExist) {
		a.log.Debug("No state file, starting empty")
		return nil
	}
	if err != nil {
		return err
	}

	s, err := snapshot.UnmarshalYAML(data)
	if err != nil {
		return fmt.Errorf("%s: %w", a.cfg.StateFile, err)
	}
	if err := snapshot.ApplySnapshot(a.vm.Store, s); err != nil {
		return fmt.Errorf("%s: %w", a.cfg.StateFile, err)
	}
	// an old file may not carry a filter
	a.vm.Store.Init()

	a.log.WithField(logfields.Items, len(a.vm.Store.Items)).Debug("Loaded state")
	return nil
}

// close stops tracking and writes the store back if anything changed.
func (a *app) close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if !a.dirty || a.vm == nil {
		return nil
	}

	s, err := snapshot.GetSnapshot(a.vm.Store)
	if err != nil {
		return err
	}
	data, err := snapshot.MarshalYAML(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.cfg.StateFile, data, 0o644); err != nil {
		return err
	}
	a.log.Info("Saved state")
	return nil
}

// dump returns the snapshot of every named model in the injector, by name.
func (a *app) dump() (snapshot.Snapshot, error) {
	out := snapshot.Snapshot{}
	for name, instance := range a.inj.Dump() {
		s, err := snapshot.GetSnapshot(instance)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}
