package repo

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/kagebridge/gravitybridge/internal/paths"
)

// document is the on-disk shape of FileRepository, mirroring the teacher's
// state.Manager: one JSON file, copy-on-read maps, mutex-guarded mutation
// followed by a full rewrite.
type document struct {
	WorkspaceBindings map[string]WorkspaceBinding  `json:"workspace_bindings"`
	ChatSessions      map[string]ChatSessionRecord `json:"chat_sessions"`
	Templates         map[string]Template          `json:"templates"`
	Schedules         map[string]Schedule          `json:"schedules"`
}

func newDocument() document {
	return document{
		WorkspaceBindings: make(map[string]WorkspaceBinding),
		ChatSessions:      make(map[string]ChatSessionRecord),
		Templates:         make(map[string]Template),
		Schedules:         make(map[string]Schedule),
	}
}

// FileRepository is a JSON-file-backed Repository, grounded on the teacher's
// state.Manager: every mutation is applied in memory under a mutex, then the
// whole document is rewritten to disk.
type FileRepository struct {
	path string
	mu   sync.Mutex
	doc  document
}

// NewFileRepository opens (or creates) repo.json under the global
// gravitybridge directory.
func NewFileRepository() (*FileRepository, error) {
	dir := paths.GetGlobalDir()
	if err := paths.EnsureDir(dir); err != nil {
		return nil, err
	}
	return newFileRepositoryAt(filepath.Join(dir, "repo.json"))
}

func newFileRepositoryAt(path string) (*FileRepository, error) {
	r := &FileRepository{path: path, doc: newDocument()}
	if err := r.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return r, nil
}

func (r *FileRepository) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}

	doc := newDocument()
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.WorkspaceBindings == nil {
		doc.WorkspaceBindings = make(map[string]WorkspaceBinding)
	}
	if doc.ChatSessions == nil {
		doc.ChatSessions = make(map[string]ChatSessionRecord)
	}
	if doc.Templates == nil {
		doc.Templates = make(map[string]Template)
	}
	if doc.Schedules == nil {
		doc.Schedules = make(map[string]Schedule)
	}
	r.doc = doc
	return nil
}

func (r *FileRepository) save() error {
	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0644)
}

func (r *FileRepository) mutate(fn func(*document)) error {
	r.mu.Lock()
	fn(&r.doc)
	err := r.save()
	r.mu.Unlock()
	return err
}

func (r *FileRepository) GetWorkspaceBinding(_ context.Context, channel string) (WorkspaceBinding, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.doc.WorkspaceBindings[channel]
	return b, ok, nil
}

func (r *FileRepository) SetWorkspaceBinding(_ context.Context, channel string, binding WorkspaceBinding) error {
	return r.mutate(func(d *document) { d.WorkspaceBindings[channel] = binding })
}

func (r *FileRepository) DeleteWorkspaceBinding(_ context.Context, channel string) error {
	return r.mutate(func(d *document) { delete(d.WorkspaceBindings, channel) })
}

func (r *FileRepository) GetChatSession(_ context.Context, channel string) (ChatSessionRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.doc.ChatSessions[channel]
	return s, ok, nil
}

func (r *FileRepository) SetChatSession(_ context.Context, channel string, record ChatSessionRecord) error {
	return r.mutate(func(d *document) {
		if record.ID == "" {
			if existing, ok := d.ChatSessions[channel]; ok && existing.ID != "" {
				record.ID = existing.ID
			} else {
				record.ID = uuid.NewString()
			}
		}
		d.ChatSessions[channel] = record
	})
}

func (r *FileRepository) ListTemplates(_ context.Context) ([]Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Template, 0, len(r.doc.Templates))
	for _, t := range r.doc.Templates {
		out = append(out, t)
	}
	return out, nil
}

func (r *FileRepository) GetTemplate(_ context.Context, name string) (Template, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.doc.Templates[name]
	return t, ok, nil
}

func (r *FileRepository) PutTemplate(_ context.Context, tpl Template) error {
	return r.mutate(func(d *document) { d.Templates[tpl.Name] = tpl })
}

func (r *FileRepository) DeleteTemplate(_ context.Context, name string) error {
	return r.mutate(func(d *document) { delete(d.Templates, name) })
}

func (r *FileRepository) ListSchedules(_ context.Context) ([]Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Schedule, 0, len(r.doc.Schedules))
	for _, s := range r.doc.Schedules {
		out = append(out, s)
	}
	return out, nil
}

func (r *FileRepository) PutSchedule(_ context.Context, s Schedule) error {
	return r.mutate(func(d *document) { d.Schedules[s.Name] = s })
}

func (r *FileRepository) DeleteSchedule(_ context.Context, name string) error {
	return r.mutate(func(d *document) { delete(d.Schedules, name) })
}

var _ Repository = (*FileRepository)(nil)
