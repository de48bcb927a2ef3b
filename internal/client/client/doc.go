// Package client contains the client-side building blocks that talk to the
// outside world: the sync server transport and the local database bootstrap.
//
// # Transport
//
// Client is the contract the sync engine uses: Ping, Health, Sync and Token.
// HTTPClient implements it over JSON/HTTP with a request timeout and a
// separate connect timeout, and attaches the device access token as a bearer
// header when one is set.
//
// # Error Handling
//
// Network failures and 5xx replies are reported as ErrUnavailable, 401 as
// ErrUnauthorized; match them with errors.Is.
//
// # Local Database
//
// InitDatabase opens the SQLite file, applies embedded goose migrations and
// limits the pool to a single connection. NewRepositories binds every
// repository to a dbx.DBTX so services can run them inside one transaction.
package client
