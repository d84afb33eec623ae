// Package output renders CLI results as a table, JSON or YAML.
//
// Field names come from json tags in every format, so one result type
// serves all three. Struct fields tagged `table:"-"` are left out of
// tables, and `table:"wide"` fields only appear with --wide.
package output
