package utils

// Replication bounds for cache directives; HDFS stores it as a short
const (
	DefaultReplication = 1
	MaxReplication     = 32767
)

// Command deadline applied around backend calls
const DefaultCommandTimeoutSeconds = 600

// Schema version of the JSON output envelope
const SchemaVersion = "1.0"

// Keyring service name for stored backend credentials
const KeyringService = "rcache"

// Keyring entry names under a profile
const (
	SecretDelegationToken   = "webhdfs-delegation-token"
	SecretOAuthClientSecret = "oauth2-client-secret"
)

// Backend names accepted in configuration
const (
	BackendCacheAdmin = "cacheadmin"
	BackendWebHDFS    = "webhdfs"
	BackendLocal      = "local"
)
