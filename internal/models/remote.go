package models

// SSHCredentials identify one remote host for deployment.
type SSHCredentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Addr returns host:port with the SSH default filled in.
func (c SSHCredentials) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return joinHostPort(c.Host, port)
}

// DeployToggles selects which auxiliary services a remote deploy covers.
type DeployToggles struct {
	ComfyUI bool `json:"comfyui"`
	Python  bool `json:"python"`
	N8N     bool `json:"n8n"`
}

// RemoteServiceEntry records the last-known URL of a remotely deployed
// service. Populated only after a successful deployment or connection test.
type RemoteServiceEntry struct {
	URL string `json:"url"`
}

/**
 * Persisted remote server configuration
 * @property {string} host - SSH host
 * @property {int} port - SSH port
 * @property {string} username - SSH user
 * @property {string} password - SSH password
 * @property {DeployToggles} deployServices - Per-service deployment toggles
 * @property {map} services - Service key -> last-known deployed URL
 * @property {bool} isConnected - Result of the last connection test
 */
type RemoteServerConfig struct {
	Host           string                        `json:"host"`
	Port           int                           `json:"port"`
	Username       string                        `json:"username"`
	Password       string                        `json:"password"`
	DeployServices DeployToggles                 `json:"deployServices"`
	Services       map[string]RemoteServiceEntry `json:"services"`
	IsConnected    bool                          `json:"isConnected"`
}

// Credentials extracts SSH credentials from the persisted record.
func (c *RemoteServerConfig) Credentials() SSHCredentials {
	return SSHCredentials{Host: c.Host, Port: c.Port, Username: c.Username, Password: c.Password}
}

// ClaraCoreRemoteConfig records where ClaraCore was remotely deployed.
type ClaraCoreRemoteConfig struct {
	Host         string       `json:"host"`
	Port         int          `json:"port"`
	URL          string       `json:"url"`
	HardwareType HardwareType `json:"hardwareType"`
	Deployed     bool         `json:"deployed"`
}
