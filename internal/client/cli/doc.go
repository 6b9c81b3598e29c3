// Package cli is the omnidesk command line. It drives the entity access
// hooks against either a remote table backend or an embedded store kept in
// a local data directory.
//
// Usage
//
//	omnidesk token --subject <user-id> [--email e] [--ttl 24h]
//	omnidesk whoami
//	omnidesk contacts|templates|deals list
//	omnidesk contacts|templates|deals get <id>
//	omnidesk contacts|templates|deals create --data '<json>'
//	omnidesk contacts|templates|deals update <id> --data '<json>'
//	omnidesk contacts|templates|deals delete <id>
//	omnidesk contacts|templates|deals watch [--id <id>] [--count N]
//
// Records are printed as JSON. --data - reads the JSON from stdin.
package cli
