package nvs

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// File is a Store backed by one YAML document. Sets are kept in memory until
// Commit, which rewrites the document through a temporary file and a rename
// so a crash never leaves a half written file behind.
type File struct {
	commitMu  sync.Mutex
	mu        sync.Mutex
	path      string
	namespace string
	scalars   map[string]int64
	blobs     map[string][]byte
}

var _ Store = (*File)(nil)

type fileDocument struct {
	Namespace string            `yaml:"namespace"`
	Scalars   map[string]int64  `yaml:"scalars,omitempty"`
	Blobs     map[string]string `yaml:"blobs,omitempty"`
}

// OpenFile loads the document at path. A missing file is an empty store; it
// is created by the first Commit.
func OpenFile(path string, namespace string) (*File, error) {
	f := &File{
		path:      path,
		namespace: namespace,
		scalars:   make(map[string]int64),
		blobs:     make(map[string][]byte),
	}
	bytes, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nvs: cannot read %s: %w", path, err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(bytes, &doc); err != nil {
		return nil, fmt.Errorf("nvs: cannot parse %s: %w", path, err)
	}
	if doc.Namespace != namespace {
		return nil, fmt.Errorf("nvs: %s holds namespace %q, want %q", path, doc.Namespace, namespace)
	}
	for k, v := range doc.Scalars {
		f.scalars[k] = v
	}
	for k, v := range doc.Blobs {
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("nvs: blob %q in %s: %w", k, path, err)
		}
		f.blobs[k] = b
	}
	return f, nil
}

// Path returns the file the store commits to.
func (f *File) Path() string {
	return f.path
}

func (f *File) GetInt(key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.scalars[key]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (f *File) SetInt(key string, value int64) error {
	f.mu.Lock()
	f.scalars[key] = value
	f.mu.Unlock()
	return nil
}

func (f *File) GetBlob(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (f *File) SetBlob(key string, value []byte) error {
	f.mu.Lock()
	f.blobs[key] = append([]byte(nil), value...)
	f.mu.Unlock()
	return nil
}

func (f *File) Erase(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, inScalars := f.scalars[key]
	_, inBlobs := f.blobs[key]
	if !inScalars && !inBlobs {
		return ErrNotFound
	}
	delete(f.scalars, key)
	delete(f.blobs, key)
	return nil
}

// Commit writes the whole namespace to disk.
func (f *File) Commit() error {
	f.commitMu.Lock()
	defer f.commitMu.Unlock()

	f.mu.Lock()
	doc := fileDocument{
		Namespace: f.namespace,
		Scalars:   make(map[string]int64, len(f.scalars)),
		Blobs:     make(map[string]string, len(f.blobs)),
	}
	for k, v := range f.scalars {
		doc.Scalars[k] = v
	}
	for k, v := range f.blobs {
		doc.Blobs[k] = base64.StdEncoding.EncodeToString(v)
	}
	f.mu.Unlock()

	contents, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("nvs: cannot marshal namespace %q: %w", f.namespace, err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("nvs: cannot create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("nvs: cannot create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		return fmt.Errorf("nvs: cannot write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("nvs: cannot close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("nvs: cannot replace %s: %w", f.path, err)
	}
	return nil
}
