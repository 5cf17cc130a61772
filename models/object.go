package models

// ObjectDefinition describes one MIB object of the dot1dStp subtree. The
// walker uses the catalogue of these definitions to map a raw OID back to a
// name and a display syntax.
type ObjectDefinition struct {
	// Name is the MIB object name, e.g. "dot1dStpPortState".
	Name string

	// OID is the numeric object OID without instance, e.g.
	// "1.3.6.1.2.1.17.2.15.1.3".
	OID string

	// Syntax controls how a raw value is rendered:
	// Integer, Counter32, TimeTicks, BridgeId, PortId, TruthValue, EnumInteger.
	Syntax string

	// Columnar is true for table columns; instances are port numbers.
	// Scalars have the single instance "0".
	Columnar bool

	// Enum maps EnumInteger values to labels. Nil for other syntaxes.
	Enum map[int64]string
}
