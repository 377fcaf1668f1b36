// Package tlsroots loads the extra CA bundle calbook-cli trusts on top of
// the system roots (tls.ca_file), for backends behind a private CA.
package tlsroots
