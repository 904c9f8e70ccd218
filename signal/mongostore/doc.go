// Package mongostore provides a MongoDB-backed implementation of the
// platform's durable signal inbox. Build the low-level client via
// signal/mongostore/clients/mongo and pass it to NewStore so the signal
// service can persist signals outside the workflow engine.
package mongostore
