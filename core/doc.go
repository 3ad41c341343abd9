// Package core defines the domain model of the content processing pipeline:
// sources, processing tasks and their stage machine, analysis results,
// documents with their chunks, and the error taxonomy shared by every stage.
package core
