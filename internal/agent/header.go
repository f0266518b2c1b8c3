// Package agent identifies the client to the storefront API and checks the
// API version the server advertises back.
//
// Both headers are RFC 8941 dictionaries:
//
//	Storefront-Agent: client="storefront-go", version="1.0.0"
//	Storefront-API: version="1.4.0"
package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// Header names.
const (
	AgentHeader = "Storefront-Agent"
	APIHeader   = "Storefront-API"
)

// Agent is the identity a client sends with every request.
type Agent struct {
	Client  string
	Version string
}

// Default is the identity used by this module's binaries.
var Default = Agent{Client: "storefront-go", Version: "1.0.0"}

// Format serializes the agent as a Storefront-Agent header value.
func (a Agent) Format() (string, error) {
	if a.Client == "" {
		return "", errors.New("agent client name is required")
	}

	dict := httpsfv.NewDictionary()
	dict.Add("client", httpsfv.NewItem(a.Client))
	if a.Version != "" {
		dict.Add("version", httpsfv.NewItem(a.Version))
	}
	return httpsfv.Marshal(dict)
}

// ParseAgentHeader extracts the agent identity from a Storefront-Agent header.
// Unknown members and parameters are ignored.
func ParseAgentHeader(header string) (Agent, error) {
	dict, err := parseDictionary(header, AgentHeader)
	if err != nil {
		return Agent{}, err
	}

	client, err := stringMember(dict, "client")
	if err != nil {
		return Agent{}, err
	}

	a := Agent{Client: client}
	if _, ok := dict.Get("version"); ok {
		if a.Version, err = stringMember(dict, "version"); err != nil {
			return Agent{}, err
		}
	}
	return a, nil
}

// FormatAPIHeader serializes a Storefront-API header advertising version.
func FormatAPIHeader(version string) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("version", httpsfv.NewItem(version))
	return httpsfv.Marshal(dict)
}

// ParseAPIHeader extracts the API version from a Storefront-API header.
func ParseAPIHeader(header string) (string, error) {
	dict, err := parseDictionary(header, APIHeader)
	if err != nil {
		return "", err
	}
	return stringMember(dict, "version")
}

func parseDictionary(header, name string) (*httpsfv.Dictionary, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("empty %s header", name)
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return nil, fmt.Errorf("invalid %s header: %w", name, err)
	}
	return dict, nil
}

func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", fmt.Errorf("%s key not found", key)
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}

	s, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return s, nil
}
