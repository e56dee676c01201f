// Package password provides argon2id password hashing in PHC string format
// and constant-time verification. Parameters are pinned per hash, so stored
// hashes remain verifiable after the engine's cost settings change;
// NeedsRehash reports when a hash lags the active settings.
package password
