// Package simplemunki provides a filesystem-backed store for a Munki
// software repository: the plist documents (manifests, pkgsinfo) and the
// opaque files (packages, icons, client resources) that make up the repo.
//
// Two stores cover the repo. DocumentStore parses and serializes XML
// property lists and knows the starter template for each document kind.
// FileStore moves raw bytes and hands out absolute paths so a frontend
// webserver can serve downloads directly. Both resolve names against a
// single repo root, create missing parent directories on write, and hide
// dotfiles and version-control directories from listings.
//
// Document mutations can be mirrored into a version control system for
// audit history (see VersionControl and the gitmirror subpackage), and
// directory scans report progress through a ProgressSink (see the status
// subpackage). Both collaborators are best-effort: their failures are
// logged, never surfaced to callers.
//
// Concurrency
//
// The stores hold no locks. Concurrent writers to the same path race at
// the filesystem level and the last write wins, which is the contract of
// the flat-file repo itself.
package simplemunki
