// Package features interprets the free-form invocation arguments: feature
// toggles such as openblas or cuda (bare or --prefixed) and the optional
// leading --build/--dev action.
package features
