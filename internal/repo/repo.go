// Package repo defines the Repository capabilities the core consumes for
// persistent, cross-restart state (spec.md §6): workspace bindings,
// chat-session records, a prompt-template catalog, and schedules. The core
// depends only on these interfaces; storage format is not prescribed.
package repo

import "context"

// WorkspaceBinding ties a chat channel to a workspace directory and, for
// Discord, the guild it belongs to.
type WorkspaceBinding struct {
	WorkspacePath string
	GuildID       string
}

// ChatSessionRecord is what the core remembers about a channel's assistant
// chat session beyond its title, which lives in the live Session value. ID
// is assigned once, on first persistence, and never changes afterward.
type ChatSessionRecord struct {
	ID          string
	DisplayName string
	IsRenamed   bool
}

// Template is a reusable prompt body, addressed by name.
type Template struct {
	Name string
	Body string
}

// Schedule is a recurring prompt: inject Prompt into the session bound to
// Channel on the cadence described by Cron.
type Schedule struct {
	Name    string
	Cron    string
	Channel string
	Prompt  string
}

// WorkspaceBindings persists the channel → workspace mapping the
// gravitybridge daemon consults when routing a prompt to CdpPool.
type WorkspaceBindings interface {
	GetWorkspaceBinding(ctx context.Context, channel string) (WorkspaceBinding, bool, error)
	SetWorkspaceBinding(ctx context.Context, channel string, binding WorkspaceBinding) error
	DeleteWorkspaceBinding(ctx context.Context, channel string) error
}

// ChatSessions persists per-channel display metadata for the assistant
// session SessionBridge is bound to.
type ChatSessions interface {
	GetChatSession(ctx context.Context, channel string) (ChatSessionRecord, bool, error)
	SetChatSession(ctx context.Context, channel string, record ChatSessionRecord) error
}

// Templates persists a named catalog of reusable prompt bodies.
type Templates interface {
	ListTemplates(ctx context.Context) ([]Template, error)
	GetTemplate(ctx context.Context, name string) (Template, bool, error)
	PutTemplate(ctx context.Context, tpl Template) error
	DeleteTemplate(ctx context.Context, name string) error
}

// Schedules persists recurring-prompt definitions.
type Schedules interface {
	ListSchedules(ctx context.Context) ([]Schedule, error)
	PutSchedule(ctx context.Context, s Schedule) error
	DeleteSchedule(ctx context.Context, name string) error
}

// Repository is the full set of persistent-state capabilities the core
// consumes. Any implementation satisfying it composes; FileRepository is the
// one this repo ships.
type Repository interface {
	WorkspaceBindings
	ChatSessions
	Templates
	Schedules
}
