/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package config

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

const providerSectionPrefix = "provider:"

// JenkinsConfig is the [jenkins] section of the secure config.
type JenkinsConfig struct {
	Server string
	User   string
	APIKey string
}

// ProviderCredentials is a [provider:<name>] section of the secure config.
type ProviderCredentials struct {
	Username  string
	Password  string
	ProjectID string
	AuthURL   string
	Region    string
}

// SecureConfig holds the secrets read from the secure config file.
type SecureConfig struct {
	// Jenkins is nil when the file has no [jenkins] section.
	Jenkins   *JenkinsConfig
	Providers map[string]ProviderCredentials
}

// LoadSecure parses the secure config file at path.
func LoadSecure(path string) (*SecureConfig, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secure config %s: %w", path, err)
	}

	out := &SecureConfig{Providers: map[string]ProviderCredentials{}}

	if section, err := file.GetSection("jenkins"); err == nil {
		jc := &JenkinsConfig{
			Server: section.Key("server").String(),
			User:   section.Key("user").String(),
			APIKey: section.Key("apikey").String(),
		}
		if jc.Server == "" {
			return nil, fmt.Errorf("secure config %s: [jenkins] section has no server", path)
		}
		out.Jenkins = jc
	}

	for _, section := range file.Sections() {
		name, ok := strings.CutPrefix(section.Name(), providerSectionPrefix)
		if !ok || name == "" {
			continue
		}
		out.Providers[name] = ProviderCredentials{
			Username:  section.Key("username").String(),
			Password:  section.Key("password").String(),
			ProjectID: section.Key("project_id").String(),
			AuthURL:   section.Key("auth_url").String(),
			Region:    section.Key("region").String(),
		}
	}

	return out, nil
}

// Provider returns the credentials configured for the named provider.
func (s *SecureConfig) Provider(name string) (ProviderCredentials, bool) {
	if s == nil {
		return ProviderCredentials{}, false
	}
	creds, ok := s.Providers[name]
	return creds, ok
}
