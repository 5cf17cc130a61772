// Package probe walks the dot1dStp subtree of a remote SNMP agent. It backs
// the stpwalk command and the end-to-end tests of the agent.
package probe

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// DefaultPort is used when Target.Address carries no port.
const DefaultPort = 161

// ─────────────────────────────────────────────────────────────────────────────
// Target
// ─────────────────────────────────────────────────────────────────────────────

// Target describes the agent to walk and how to authenticate.
type Target struct {
	// Address is "host" or "host:port".
	Address string

	// Version is "1", "2c" or "3".
	Version string

	// Community is used for versions 1 and 2c.
	Community string

	// V3 holds USM credentials for version 3.
	V3 V3Credentials

	// Timeout per request. Default: 2 s.
	Timeout time.Duration

	// Retries per request.
	Retries int

	// MaxRepetitions for GETBULK. Default: gosnmp's (50).
	MaxRepetitions uint32
}

// V3Credentials are SNMPv3 USM parameters. Protocol names are matched
// case-insensitively; empty or "noauth"/"nopriv" disables the level.
type V3Credentials struct {
	Username                 string
	AuthenticationProtocol   string // md5, sha, sha224, sha256, sha384, sha512
	AuthenticationPassphrase string
	PrivacyProtocol          string // des, aes, aes192, aes256, aes192c, aes256c
	PrivacyPassphrase        string
}

// ─────────────────────────────────────────────────────────────────────────────
// Session factory
// ─────────────────────────────────────────────────────────────────────────────

// NewSession builds an unconnected gosnmp session for t.
func NewSession(t Target) (*gosnmp.GoSNMP, error) {
	host, port, err := splitAddress(t.Address)
	if err != nil {
		return nil, err
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	g := &gosnmp.GoSNMP{
		Target:         host,
		Port:           port,
		Timeout:        timeout,
		Retries:        t.Retries,
		MaxOids:        gosnmp.MaxOids,
		MaxRepetitions: t.MaxRepetitions,
	}

	switch t.Version {
	case "1":
		g.Version = gosnmp.Version1
		g.Community = t.Community
	case "2c", "":
		g.Version = gosnmp.Version2c
		g.Community = t.Community
	case "3":
		if t.V3.Username == "" {
			return nil, fmt.Errorf("probe: SNMPv3 requires a username")
		}
		g.Version = gosnmp.Version3
		g.SecurityModel = gosnmp.UserSecurityModel
		g.MsgFlags = msgFlags(t.V3)
		g.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 t.V3.Username,
			AuthenticationProtocol:   authProto(t.V3.AuthenticationProtocol),
			AuthenticationPassphrase: t.V3.AuthenticationPassphrase,
			PrivacyProtocol:          privProto(t.V3.PrivacyProtocol),
			PrivacyPassphrase:        t.V3.PrivacyPassphrase,
		}
	default:
		return nil, fmt.Errorf("probe: unsupported SNMP version %q", t.Version)
	}
	return g, nil
}

func splitAddress(addr string) (string, uint16, error) {
	if addr == "" {
		return "", 0, fmt.Errorf("probe: empty target address")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// Bare host or IPv6 literal without a port.
		return strings.Trim(addr, "[]"), DefaultPort, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("probe: target %q: bad port: %w", addr, err)
	}
	return host, uint16(port), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// SNMPv3 helpers
// ─────────────────────────────────────────────────────────────────────────────

func msgFlags(cred V3Credentials) gosnmp.SnmpV3MsgFlags {
	hasAuth := authProto(cred.AuthenticationProtocol) != gosnmp.NoAuth
	hasPriv := privProto(cred.PrivacyProtocol) != gosnmp.NoPriv

	switch {
	case hasAuth && hasPriv:
		return gosnmp.AuthPriv
	case hasAuth:
		return gosnmp.AuthNoPriv
	default:
		return gosnmp.NoAuthNoPriv
	}
}

func authProto(s string) gosnmp.SnmpV3AuthProtocol {
	switch strings.ToLower(s) {
	case "md5":
		return gosnmp.MD5
	case "sha":
		return gosnmp.SHA
	case "sha224":
		return gosnmp.SHA224
	case "sha256":
		return gosnmp.SHA256
	case "sha384":
		return gosnmp.SHA384
	case "sha512":
		return gosnmp.SHA512
	default:
		return gosnmp.NoAuth
	}
}

func privProto(s string) gosnmp.SnmpV3PrivProtocol {
	switch strings.ToLower(s) {
	case "des":
		return gosnmp.DES
	case "aes":
		return gosnmp.AES
	case "aes192":
		return gosnmp.AES192
	case "aes256":
		return gosnmp.AES256
	case "aes192c":
		return gosnmp.AES192C
	case "aes256c":
		return gosnmp.AES256C
	default:
		return gosnmp.NoPriv
	}
}
