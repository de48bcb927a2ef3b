// Package cli is the recipesync command-line client.
//
// Every command opens the local database, runs against it and closes it
// again. Catalogue edits work offline; `sync` pushes them to the server and
// `watch` keeps syncing in the background until interrupted.
//
//	recipesync add recipe "Pancakes"
//	recipesync list recipes
//	recipesync sync
//	recipesync conflicts
//	recipesync resolve 3 newest
package cli
