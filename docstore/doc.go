// Package docstore defines a small document collection contract with Mongo
// style filters and updates, plus an in-process evaluator for backends that
// cannot run those filters natively.
//
// Backends live in sub packages: sqlstore keeps documents as JSON rows through
// bun, mongostore passes everything through to MongoDB.
package docstore
