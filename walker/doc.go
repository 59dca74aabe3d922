// Package walker traverses typed record trees under schema guidance.
//
// The walk visits every node with its type definition and every present
// field value with its field definition, maintaining two paths at all
// times: the declared path, which is index-free and matches the paths
// invariants are declared against, and the instance path, which carries
// "[i]" suffixes for repeating fields so issues can point at the exact
// offending element.
//
// Validation phases plug in as VisitorFuncs; the walker itself knows
// nothing about invariants or bindings.
package walker
