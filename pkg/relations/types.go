package relations

// Cardinality classifies how two collections relate.
type Cardinality string

const (
	ManyToOne  Cardinality = "many_to_one"
	OneToMany  Cardinality = "one_to_many"
	ManyToMany Cardinality = "many_to_many"
	OneToOne   Cardinality = "one_to_one"
)

// cardinalityWeights bias the complexity score toward the expensive edge
// kinds: a junction fan-out costs far more provider calls than a single
// foreign-key lookup.
var cardinalityWeights = map[Cardinality]int{
	ManyToOne:  5,
	OneToMany:  15,
	ManyToMany: 25,
	OneToOne:   3,
}

// Edge is one schema-level relationship between two collections. Edges are
// static metadata supplied by the host CMS, not discovered from data.
type Edge struct {
	SourceCollection   string      `json:"source_collection"`
	SourceField        string      `json:"source_field"`
	TargetCollection   string      `json:"target_collection"`
	TargetField        string      `json:"target_field"`
	Cardinality        Cardinality `json:"cardinality"`
	JunctionCollection string      `json:"junction_collection,omitempty"`
	TranslateRelated   bool        `json:"translate_related"`
}
