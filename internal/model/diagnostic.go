package model

// DiagnosticKind tags a recoverable finding.
type DiagnosticKind string

const (
	// DiagDanglingReference: a named table or entity reference that resolves
	// to nothing in the parsed document.
	DiagDanglingReference DiagnosticKind = "dangling-reference"
	// DiagUnresolvedReference: a formula reference with no matching field.
	DiagUnresolvedReference DiagnosticKind = "unresolved-reference"
	// DiagAmbiguousReference: a reference that matches entities in more than
	// one data source.
	DiagAmbiguousReference DiagnosticKind = "ambiguous-reference"
	// DiagCycle: a calculated-field dependency cycle.
	DiagCycle DiagnosticKind = "cycle"
	// DiagMalformedElement: an XML element that could not be extracted.
	DiagMalformedElement DiagnosticKind = "malformed-element"
	// DiagFormulaSyntax: recoverable formula parse trouble, e.g. an
	// unterminated bracket.
	DiagFormulaSyntax DiagnosticKind = "formula-syntax"
	// DiagUnknownConnection: a connection class the parser does not know.
	DiagUnknownConnection DiagnosticKind = "unknown-connection-type"
)

// Diagnostic is one entry of the document's warning list. Diagnostics are
// informational: their presence never changes the parse outcome.
type Diagnostic struct {
	Kind DiagnosticKind `json:"kind"`
	// Entity is the id of the affected entity (field name, datasource id,
	// step id), when one exists.
	Entity string `json:"entity,omitempty"`
	// Ref is the unresolved or offending name, where applicable.
	Ref     string `json:"ref,omitempty"`
	Message string `json:"message"`
}

// KnownConnectionClasses lists the connection classes the parser recognizes.
// Anything else yields a DiagUnknownConnection diagnostic but is carried
// through unchanged.
var KnownConnectionClasses = map[string]bool{
	"sqlserver":  true,
	"postgres":   true,
	"oracle":     true,
	"mysql":      true,
	"snowflake":  true,
	"redshift":   true,
	"bigquery":   true,
	"excel":      true,
	"csv":        true,
	"textscan":   true,
	"hyper":      true,
	"sqlproxy":   true,
	"federated":  true,
	"teradata":   true,
	"databricks": true,
}
