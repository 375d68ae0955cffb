package nvs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	_, err := s.GetInt("level")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	expectNoError(t, s.SetInt("level", 65535))
	expectNoError(t, s.SetInt("freq_fine", -12))
	expectNoError(t, s.SetBlob("fav_slot_1", []byte{1, 2, 3}))

	v, err := s.GetInt("freq_fine")
	expectNoError(t, err)
	if v != -12 {
		t.Errorf("expected -12, got %d", v)
	}
	b, err := s.GetBlob("fav_slot_1")
	expectNoError(t, err)
	if !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Errorf("unexpected blob %v", b)
	}
	b[0] = 9
	b2, _ := s.GetBlob("fav_slot_1")
	if b2[0] != 1 {
		t.Errorf("GetBlob must return a copy")
	}

	expectNoError(t, s.Erase("fav_slot_1"))
	if _, err := s.GetBlob("fav_slot_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected erased blob to be gone, got %v", err)
	}
	if err := s.Erase("fav_slot_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound erasing twice, got %v", err)
	}
	expectNoError(t, s.Commit())
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	if m.Commits() != 1 {
		t.Errorf("expected 1 commit, got %d", m.Commits())
	}
	m.FailCommit = errors.New("flash worn out")
	if err := m.Commit(); err == nil {
		t.Errorf("expected commit failure")
	}
	if m.Commits() != 1 {
		t.Errorf("failed commit must not count")
	}
}

func TestFilePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nvs.yaml")
	f, err := OpenFile(path, "oscillator")
	expectNoError(t, err)
	exerciseStore(t, f)
	expectNoError(t, f.SetBlob("fav_slot_2", []byte{0xFF, 0x00, 0x45}))
	expectNoError(t, f.Commit())

	reopened, err := OpenFile(path, "oscillator")
	expectNoError(t, err)
	v, err := reopened.GetInt("level")
	expectNoError(t, err)
	if v != 65535 {
		t.Errorf("expected 65535, got %d", v)
	}
	b, err := reopened.GetBlob("fav_slot_2")
	expectNoError(t, err)
	if !bytes.Equal(b, []byte{0xFF, 0x00, 0x45}) {
		t.Errorf("unexpected blob %v", b)
	}
}

func TestFileUncommittedChangesAreLost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvs.yaml")
	f, err := OpenFile(path, "oscillator")
	expectNoError(t, err)
	expectNoError(t, f.SetInt("freq_pitch", 60))
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no file before commit, got %v", err)
	}
	reopened, err := OpenFile(path, "oscillator")
	expectNoError(t, err)
	if _, err := reopened.GetInt("freq_pitch"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileRejectsOtherNamespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvs.yaml")
	f, err := OpenFile(path, "mixer")
	expectNoError(t, err)
	expectNoError(t, f.Commit())
	if _, err := OpenFile(path, "oscillator"); err == nil {
		t.Errorf("expected namespace mismatch error")
	}
}
