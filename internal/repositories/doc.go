// Package repositories implements SQLite persistence for the hpx client.
//
// Key Implementations:
//   - [KVRepository] : the key-value substrate behind the session store (table "kv")
//   - [SongRepository] : a local cache of Spotify tracks (table "songs")
//
// Tables are created by the embedded migrations in the shared package; see [shared.RunMigrations].
package repositories
