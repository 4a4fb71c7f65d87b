package config

// Version is the running binary's version, folded into the global hash
// (see internal/run/global_hash.go) so upgrading mono busts every cache
// entry, and checked against a repo's package.json engines.mono
// constraint by CheckEngineVersion.
const Version = "0.1.0"

// EnvAPIURL, EnvTeamID, and EnvToken override the corresponding repo/
// user config file values, taking precedence over both.
const (
	EnvAPIURL = "MONO_API_URL"
	EnvTeamID = "MONO_TEAM_ID"
	EnvToken  = "MONO_TOKEN"
)
