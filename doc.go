// Package fabls maintains a live, multi-file symbol index for NesFab
// projects and answers hover, go-to-definition, and completion queries as
// files change. File changes trigger a full reparse and re-extraction of the
// changed file only; workspace changes rebuild the config dependency graph
// and bulk-index newly referenced files in parallel. Consistency across
// files is eventual, never blocking a query.
package fabls
