// Package validator validates request structs through struct tags and
// returns field errors keyed by snake_case field name.
package validator
