// Package fields provides the field kinds used to declare node type schemas:
// primitive kinds that check and canonicalise scalar values, and composite
// kinds that recurse into the registry for nested nodes, lists, mappings and
// unions.
//
// Every constructor accepts grammar options for the shared attributes (null
// policy, defaults, help text) and returns a concrete type with chainable
// setters for its kind-specific constraints:
//
//	fields.Float(grammar.Help("the constant value")).Min(-1000).Max(1000)
//
// Definition-time mistakes, such as a minimum above the maximum, surface when
// the registry is sealed with Finalize.
package fields
