// Package grammar implements a registry-backed tree grammar: named node
// types with typed fields, single inheritance, and polymorphic groups
// discriminated by a "type" tag.
//
// A schema is declared by registering NodeType values (grouped with
// BeginGroup/EndGroup where polymorphism is wanted) and sealing the registry
// with Finalize. Validation turns loosely typed input into a canonical tree:
// fields in declaration order, defaults filled in, every value normalised by
// its field kind. When a value inside a group carries no "type" tag, the
// resolver tries every member in an isolated context and accepts only an
// unambiguous winner.
//
// Errors are split into two kinds. InvalidInputError describes a problem with
// the submitted value and carries the position trace plus a bounded snapshot
// of the offending subtree; InternalError flags a bug in the schema
// definition or in calling code.
package grammar
