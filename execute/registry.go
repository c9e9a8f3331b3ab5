package execute

import "strings"

// CommandKind is the closed set of commands the executor knows. Dispatch
// switches over this enum, so a command that parses but has no handler is
// impossible to construct.
type CommandKind int

const (
	CmdAddChunk CommandKind = iota
	CmdEditChunk
	CmdDeleteChunk
	CmdListGalleries
	CmdShowGallery
	CmdRAGListDocuments
	CmdRAGGetDocument
	CmdRAGSearch
)

// HandlerClass distinguishes local state mutations from remote HTTP calls.
type HandlerClass int

const (
	HandlerLocal HandlerClass = iota
	HandlerRemote
)

// RegistryEntry describes one command available to a role.
type RegistryEntry struct {
	Kind  CommandKind
	Name  string
	Class HandlerClass
}

// The two registries are fixed at startup and disjoint. Admin commands are
// never reachable from the user registry and vice versa; this is an
// authorization boundary, not a default.
var (
	adminRegistry = buildRegistry(
		RegistryEntry{Kind: CmdAddChunk, Name: "ADD_CHUNK", Class: HandlerLocal},
		RegistryEntry{Kind: CmdEditChunk, Name: "EDIT_CHUNK", Class: HandlerLocal},
		RegistryEntry{Kind: CmdDeleteChunk, Name: "DELETE_CHUNK", Class: HandlerLocal},
	)
	userRegistry = buildRegistry(
		RegistryEntry{Kind: CmdListGalleries, Name: "LIST_GALLERIES", Class: HandlerRemote},
		RegistryEntry{Kind: CmdShowGallery, Name: "SHOW_GALLERY", Class: HandlerRemote},
		RegistryEntry{Kind: CmdRAGListDocuments, Name: "RAG_LIST_DOCUMENTS", Class: HandlerRemote},
		RegistryEntry{Kind: CmdRAGGetDocument, Name: "RAG_GET_DOCUMENT", Class: HandlerRemote},
		RegistryEntry{Kind: CmdRAGSearch, Name: "RAG_SEARCH", Class: HandlerRemote},
	)
)

type registry struct {
	entries map[string]RegistryEntry
	names   []string
}

func buildRegistry(entries ...RegistryEntry) *registry {
	r := &registry{entries: make(map[string]RegistryEntry, len(entries))}
	for _, e := range entries {
		r.entries[e.Name] = e
		r.names = append(r.names, e.Name)
	}
	return r
}

func registryFor(role Role) *registry {
	if role == RoleAdmin {
		return adminRegistry
	}
	return userRegistry
}

// Lookup resolves a command name for a role, case-sensitively.
func Lookup(role Role, name string) (RegistryEntry, bool) {
	e, ok := registryFor(role).entries[name]
	return e, ok
}

// AvailableCommands lists the command names a role may invoke, in
// registration order.
func AvailableCommands(role Role) []string {
	return registryFor(role).names
}

func availableList(role Role) string {
	return strings.Join(AvailableCommands(role), ", ")
}
