// Package storage provides revocation storage for fwt-server.
//
// A revocation marks a token ID as rejected until a given instant. Once that
// instant passes the entry is dead weight: the token it names has expired
// anyway, so stores drop it on Purge.
//
// Backends:
//
//   - memory: sharded concurrent map, lost on restart
//   - badger: embedded Badger v3 database, entries carry a TTL
//
// Open selects a backend from Config and starts the periodic purge loop.
package storage
