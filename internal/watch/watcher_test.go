package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherFiresOnPHPChange(t *testing.T) {
	dir := t.TempDir()

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(dir, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "UserController.php")
	if err := os.WriteFile(path, []byte("<?php\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("change callback never fired")
	}
}

func TestWatcherIgnoresNonPHPFiles(t *testing.T) {
	dir := t.TempDir()

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(dir, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		t.Fatal("callback fired for a non-PHP file")
	case <-time.After(700 * time.Millisecond):
	}
}
