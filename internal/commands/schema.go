package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/xeipuuv/gojsonschema"
)

// CommandSchema is one entry of the command-schema document.
type CommandSchema struct {
	Description string          `json:"description"`
	Params      json.RawMessage `json:"params,omitempty"`
}

// SchemaStore serves the static command-schema document and validates
// command parameters against it. The document is maintained separately
// from the code; the store can watch the file and reload on change.
type SchemaStore struct {
	path   string
	logger *slog.Logger

	mu         sync.RWMutex
	doc        map[string]CommandSchema
	validators map[string]*gojsonschema.Schema
	loadErr    error

	watcher *fsnotify.Watcher
}

// NewSchemaStore creates a store for the document at path and performs
// the initial load. A missing or unreadable document is not fatal here:
// the load error is remembered and surfaced on access, so the servers
// can still come up without schemas.
func NewSchemaStore(path string) *SchemaStore {
	s := &SchemaStore{
		path:   path,
		logger: slog.Default(),
	}
	if err := s.Load(); err != nil {
		s.logger.Warn("schema_document_unavailable",
			"path", path,
			"error", err.Error(),
		)
	}
	return s
}

// Load reads and parses the schema document, compiling a validator for
// every command that declares a params schema.
func (s *SchemaStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		err = fmt.Errorf("failed to read schema document %s: %w", s.path, err)
		s.setLoadErr(err)
		return err
	}

	var doc map[string]CommandSchema
	if err := json.Unmarshal(data, &doc); err != nil {
		err = fmt.Errorf("failed to parse schema document %s: %w", s.path, err)
		s.setLoadErr(err)
		return err
	}

	validators := make(map[string]*gojsonschema.Schema)
	for name, entry := range doc {
		if len(entry.Params) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(entry.Params))
		if err != nil {
			err = fmt.Errorf("invalid params schema for %s: %w", name, err)
			s.setLoadErr(err)
			return err
		}
		validators[name] = schema
	}

	s.mu.Lock()
	s.doc = doc
	s.validators = validators
	s.loadErr = nil
	s.mu.Unlock()

	s.logger.Info("schema_document_loaded",
		"path", s.path,
		"commands", len(doc),
	)
	return nil
}

func (s *SchemaStore) setLoadErr(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

// Document returns the full schema document.
func (s *SchemaStore) Document() (map[string]CommandSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		if s.loadErr != nil {
			return nil, s.loadErr
		}
		return nil, fmt.Errorf("schema document %s not loaded", s.path)
	}
	return s.doc, nil
}

// Command returns the schema entry for one command name.
func (s *SchemaStore) Command(name string) (CommandSchema, bool, error) {
	doc, err := s.Document()
	if err != nil {
		return CommandSchema{}, false, err
	}
	entry, ok := doc[name]
	return entry, ok, nil
}

// ValidateParams checks params against the command's declared schema.
// Commands without a schema entry pass through unchecked.
func (s *SchemaStore) ValidateParams(name string, params map[string]any) error {
	s.mu.RLock()
	schema := s.validators[name]
	s.mu.RUnlock()
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", name, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fmt.Errorf("invalid parameters for %s: %s", name, strings.Join(details, "; "))
	}
	return nil
}

// Watch reloads the document whenever the file changes on disk. The
// watch runs until Close.
func (s *SchemaStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create schema watcher: %w", err)
	}
	// Watch the directory: editors replace the file rather than
	// writing it in place, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch schema directory: %w", err)
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				s.logger.Info("schema_document_changed", "path", s.path)
				if err := s.Load(); err != nil {
					s.logger.Error("schema_reload_failed", "error", err.Error())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("schema_watch_error", "error", err.Error())
			}
		}
	}()
	return nil
}

// Close stops the file watch, if any.
func (s *SchemaStore) Close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
}
