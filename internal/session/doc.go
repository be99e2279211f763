// Package session owns the signed-in user's token and credentials.
//
// A [Store] keeps the current [Session] in memory and mirrors every change to a
// [storage.Storage] under two keys:
//   - "jwt" : the raw bearer token
//   - "credentials" : the JSON-encoded [models.Credentials]
//
// Credentials never exist without a token. [Store.Initialize] discards
// orphaned or malformed credentials instead of failing, so a corrupt substrate
// degrades to a signed-out session.
package session
