package ast

// BlockDef pairs a Block with the name of the template that defines it,
// used to build the ancestor-ordered blocks_definitions list (spec §3).
type BlockDef struct {
	Owner string
	Block *Block
}

// NamespaceEntry is one resolved `import ... as ns` binding: which
// template the macros came from, and the macros themselves (spec §4.5).
type NamespaceEntry struct {
	Owner  string
	Macros map[string]*MacroDefinition
}

// Linked is a Template record (spec §3) after registry post-parse
// linking: parent chain, ancestor-ordered block definitions, and the
// fully resolved macro-namespace table.
type Linked struct {
	Name       string
	Path       *string
	Parsed     *ParsedTemplate
	ParentName *string

	// Parents lists ancestors from closest to root, no duplicates.
	Parents []string

	// BlocksDefinitions[block] is ancestor-first: index 0 is this
	// template's own definition when present.
	BlocksDefinitions map[string][]BlockDef

	// Namespaces is this template's fully resolved macro-import table,
	// inherited from ancestors and overridable by its own imports.
	Namespaces map[string]NamespaceEntry

	FromExtend bool
}
