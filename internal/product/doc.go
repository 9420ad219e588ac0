// Package product holds the records of a product report: packaged charts or
// helmfiles, container images, the references they are discovered through and
// the issues accumulated while building the report.
//
// Records are plain structs with value equality. A record is valid once every
// reported field is set; the logical path of the archive a record was found in
// travels with the record but is not part of its identity.
package product
