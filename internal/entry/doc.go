// Package entry defines the travel journal record and its collection codec.
//
// An Entry is one journal record: a photo reference, the resolved address of
// the capture location, the capture time and an optional note. The whole
// journal is persisted as a single JSON array (a Collection) under one key.
//
// # Wire format
//
// Entries are written with the field names the mobile app has always used:
//
//	{"id":"...","imageUri":"...","address":"...","timestamp":1000,"description":"...","isFavorite":false}
//
// On read, the aliases imageReference, capturedAt and note are also accepted.
// Unknown fields are ignored and an absent description decodes as nil.
//
// This package imports nothing internal. Both the record store and the
// journal service build on it.
package entry
