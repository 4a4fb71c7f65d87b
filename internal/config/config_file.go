// Package config loads the persisted configuration that sits outside
// mono.json: the repo-local remote-cache settings checked into
// .mono/config.json, and the user-local credentials (bearer token) kept
// in the OS's standard config directory so they never end up in a repo.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/monotask/mono/internal/client"
	"github.com/monotask/mono/internal/monopath"
)

// RemoteConfig is a config object for the logged-in remote-cache user.
type RemoteConfig struct {
	// Token is a bearer token.
	Token string `json:"token,omitempty"`
	// TeamID scopes the remote cache to one team/workspace.
	TeamID string `json:"teamId,omitempty"`
	// APIURL is the remote cache endpoint.
	APIURL string `json:"apiUrl,omitempty"`
}

func defaultRemoteConfig() *RemoteConfig {
	return &RemoteConfig{
		APIURL: "https://api.mono.build",
	}
}

// RepoConfig is the portion of configuration checked into the repo
// itself, at .mono/config.json. It never carries a token.
type RepoConfig struct {
	APIURL string `json:"apiUrl,omitempty"`
	TeamID string `json:"teamId,omitempty"`
}

// GetRemoteConfig merges this repo config with a user token to build
// the client.Config a run's remote cache should use.
func (r *RepoConfig) GetRemoteConfig(token string) client.Config {
	apiURL := r.APIURL
	if apiURL == "" {
		apiURL = defaultRemoteConfig().APIURL
	}
	return client.Config{
		APIURL: apiURL,
		Token:  token,
		TeamID: r.TeamID,
	}
}

// UserConfig is the user-local, not-checked-in half of configuration:
// just the bearer token today.
type UserConfig struct {
	path  monopath.AbsoluteSystemPath
	fsys  afero.Fs
	token string
}

// Token returns the logged-in user's bearer token, if any.
func (u *UserConfig) Token() string {
	return u.token
}

// SetToken persists token to the user config file.
func (u *UserConfig) SetToken(token string) error {
	u.token = token
	return writeConfigFile(u.fsys, u.path, &RemoteConfig{Token: token})
}

// Delete removes the user config file, logging the user out.
func (u *UserConfig) Delete() error {
	u.token = ""
	return u.fsys.Remove(u.path.ToString())
}

func writeConfigFile(fsys afero.Fs, path monopath.AbsoluteSystemPath, cfg *RemoteConfig) error {
	body, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path.ToString()), 0755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, path.ToString(), body, 0600)
}

// DefaultUserConfigPath returns the standard per-OS location for the
// user config file (XDG_CONFIG_HOME on Linux, ~/Library/... on macOS,
// %AppData% on Windows).
func DefaultUserConfigPath() monopath.AbsoluteSystemPath {
	path, err := xdg.ConfigFile(filepath.Join("mono", "config.json"))
	if err != nil {
		home, _ := homedir.Dir()
		path = filepath.Join(home, ".mono", "config.json")
	}
	return monopath.AbsoluteSystemPath(path)
}

// GetRepoConfigPath returns the repo-local config file path under
// repoRoot/.mono/config.json.
func GetRepoConfigPath(repoRoot monopath.AbsoluteSystemPath) monopath.AbsoluteSystemPath {
	return repoRoot.Join(".mono", "config.json")
}

// ReadUserConfigFile reads the user's bearer token, defaulting to an
// empty, write-ready UserConfig if the file doesn't exist yet.
func ReadUserConfigFile(path monopath.AbsoluteSystemPath) (*UserConfig, error) {
	fsys := afero.NewOsFs()
	cfg, err := readConfigFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return &UserConfig{path: path, fsys: fsys, token: cfg.Token}, nil
}

// ReadRepoConfigFile reads the repo-local remote-cache settings at path.
func ReadRepoConfigFile(path monopath.AbsoluteSystemPath) (*RepoConfig, error) {
	fsys := afero.NewOsFs()
	cfg, err := readConfigFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return &RepoConfig{APIURL: cfg.APIURL, TeamID: cfg.TeamID}, nil
}

// readConfigFile loads cfg from the json file at path, if it exists, then
// lets MONO_API_URL, MONO_TEAM_ID, and MONO_TOKEN override whatever the
// file said. viper owns the file-plus-env merge; mapstructure decodes the
// merged values into the typed RemoteConfig the rest of the package uses.
func readConfigFile(fsys afero.Fs, path monopath.AbsoluteSystemPath) (*RemoteConfig, error) {
	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigFile(path.ToString())
	v.SetConfigType("json")

	v.SetEnvPrefix("mono")
	v.MustBindEnv("apiUrl", EnvAPIURL)
	v.MustBindEnv("teamId", EnvTeamID)
	v.MustBindEnv("token", EnvToken)
	v.SetDefault("apiUrl", defaultRemoteConfig().APIURL)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	raw := map[string]interface{}{
		"apiUrl": v.Get("apiUrl"),
		"teamId": v.Get("teamId"),
		"token":  v.Get("token"),
	}

	cfg := &RemoteConfig{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: cfg})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return cfg, nil
}
