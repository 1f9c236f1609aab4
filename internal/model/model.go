// Package model defines the canonical in-memory representation of parsed
// Tableau workbooks and prep flows. All entities are built once during a
// parse pass and treated as immutable afterwards; cross-references between
// entities are plain string ids resolved by the normalizer, never pointers.
package model

// Kind identifies the artifact type a document was parsed from.
type Kind string

const (
	KindWorkbook Kind = "workbook"
	KindPrepFlow Kind = "prep_flow"
)

// FieldRole distinguishes dimensions from measures.
type FieldRole string

const (
	RoleDimension FieldRole = "dimension"
	RoleMeasure   FieldRole = "measure"
)

// FieldStatus classifies a calculated field after dependency resolution.
type FieldStatus string

const (
	// StatusResolved means every reference in the formula maps to a field
	// in the same data source.
	StatusResolved FieldStatus = "resolved"
	// StatusPartiallyResolved means some references point outside the data
	// source (e.g. a parameter or another source); they are recorded but
	// not traversed.
	StatusPartiallyResolved FieldStatus = "partially-resolved"
	// StatusUnresolved means at least one reference matches nothing visible.
	StatusUnresolved FieldStatus = "unresolved"
	// StatusCyclic means the field participates in a reference cycle.
	StatusCyclic FieldStatus = "cyclic"
)

// Document is the root entity for one parsed file. Exactly one of
// Worksheets/Steps is populated depending on Kind.
type Document struct {
	// Name is the caller-supplied logical name, not anything from the XML.
	Name       string `json:"name"`
	SourceFile string `json:"source_file"`
	Kind       Kind   `json:"kind"`
	// Version is the Tableau document version attribute, when present.
	Version string `json:"version,omitempty"`

	DataSources []*DataSource `json:"data_sources"`
	Worksheets  []*Worksheet  `json:"worksheets,omitempty"`
	Dashboards  []*Dashboard  `json:"dashboards,omitempty"`
	Steps       []*Step       `json:"steps,omitempty"`

	// Diagnostics carries every recoverable finding from the parse.
	// Absent from output when the parse was clean.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Connection holds the non-credential connection attributes of a data
// source. Username and authentication mode are identity tags in the XML,
// not secrets, and are carried as-is; passwords never appear in .twb files.
type Connection struct {
	Class          string `json:"class"`
	Server         string `json:"server,omitempty"`
	DBName         string `json:"dbname,omitempty"`
	Schema         string `json:"schema,omitempty"`
	Table          string `json:"table,omitempty"`
	Username       string `json:"username,omitempty"`
	Authentication string `json:"authentication,omitempty"`
}

// DataSource is owned exclusively by its Document.
type DataSource struct {
	ID         string       `json:"id"`
	Caption    string       `json:"caption,omitempty"`
	Connection *Connection  `json:"connection,omitempty"`
	Tables     []string     `json:"tables,omitempty"`
	Fields     []*Field     `json:"fields"`
	Joins      []*Join      `json:"joins,omitempty"`
	Parameters []*Parameter `json:"parameters,omitempty"`

	// Graph is the calculated-field dependency graph, present whenever the
	// source has at least one calculated field.
	Graph *DependencyGraph `json:"dependency_graph,omitempty"`
}

// Field is uniquely named within its DataSource.
type Field struct {
	Name         string    `json:"name"`
	Caption      string    `json:"caption,omitempty"`
	Role         FieldRole `json:"role,omitempty"`
	Datatype     string    `json:"datatype,omitempty"`
	IsCalculated bool      `json:"is_calculated"`
	// Formula is the raw expression string, calculated fields only.
	Formula            string `json:"formula,omitempty"`
	DefaultAggregation string `json:"default_aggregation,omitempty"`

	// Status and References are filled in by the dependency graph builder
	// for calculated fields; both stay empty on plain fields.
	Status     FieldStatus `json:"status,omitempty"`
	References []string    `json:"references,omitempty"`
}

// Join records one join relation between two tables of a data source.
// Endpoints are table names; a name that does not appear in the data
// source's table list is kept anyway and flagged as a diagnostic.
type Join struct {
	LeftTable  string          `json:"left_table"`
	RightTable string          `json:"right_table"`
	Type       string          `json:"join_type"`
	Predicates []JoinPredicate `json:"predicates,omitempty"`
	// Expression is the raw ON clause when the XML carries it as one string
	// instead of structured clause elements.
	Expression string `json:"expression,omitempty"`
}

// JoinPredicate is one column-pair comparison of a join's ON clause.
type JoinPredicate struct {
	LeftColumn  string `json:"left"`
	Operator    string `json:"op"`
	RightColumn string `json:"right"`
}

// Parameter is a workbook-level input value.
type Parameter struct {
	Name     string `json:"name"`
	Caption  string `json:"caption,omitempty"`
	Datatype string `json:"datatype,omitempty"`
	// Value is the current value. The pointer keeps "no value" (null)
	// distinguishable from an explicit empty string.
	Value         *string  `json:"value"`
	AllowedValues []string `json:"allowed_values,omitempty"`
}

// Worksheet references fields and data sources by id only.
type Worksheet struct {
	Name          string   `json:"name"`
	DataSourceIDs []string `json:"data_source_ids,omitempty"`
	FieldRefs     []string `json:"field_refs,omitempty"`
	Filters       []Filter `json:"filters,omitempty"`
}

// Filter is a worksheet filter reference.
type Filter struct {
	Field string `json:"field"`
	Class string `json:"class,omitempty"`
}

// Dashboard groups worksheets and, through them, fields and data sources.
type Dashboard struct {
	Name          string   `json:"name"`
	Worksheets    []string `json:"worksheets,omitempty"`
	DataSourceIDs []string `json:"data_source_ids,omitempty"`
	FieldRefs     []string `json:"field_refs,omitempty"`
}

// Step is one node of a prep flow. Upstream/Downstream carry step ids.
type Step struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type"`
	Upstream []string `json:"upstream,omitempty"`
	Downstream []string `json:"downstream,omitempty"`

	// Type-specific detail, at most one populated.
	Connection   *Connection   `json:"connection,omitempty"`
	JoinType     string        `json:"join_type,omitempty"`
	JoinClauses  []JoinPredicate `json:"join_clauses,omitempty"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	Condition    *Condition    `json:"condition,omitempty"`
	Operation    *Operation    `json:"operation,omitempty"`
}

// Aggregation describes one aggregated output of an aggregate step.
type Aggregation struct {
	Name        string `json:"name"`
	Calculation string `json:"calculation,omitempty"`
	SourceField string `json:"source_field,omitempty"`
}

// Condition is a filter step predicate.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Operation is a clean step operation.
type Operation struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// DependencyGraph is the persisted form of one data source's calculated
// field graph. Edges use normalized field names; cycle members appear in
// cycle order. EvaluationOrder covers non-cyclic calculated fields only.
type DependencyGraph struct {
	Edges           []Edge     `json:"edges,omitempty"`
	Cycles          [][]string `json:"cycles,omitempty"`
	EvaluationOrder []string   `json:"evaluation_order,omitempty"`
}

// Edge records that From's formula references To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	// Raw is the reference text as written in the formula, before
	// escape stripping.
	Raw string `json:"raw,omitempty"`
}
