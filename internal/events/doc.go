// Package events enumerates the render lifecycle events renderhook reports.
//
// Kind is a closed set: every value maps to exactly one webhook path and one
// wire name. Parse is the only way to obtain a Kind from user input.
package events
