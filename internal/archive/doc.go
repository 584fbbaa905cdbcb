// Package archive resolves RAR archive sets by volume-naming convention and
// exposes their contents without bulk decompression: entry enumeration,
// integrity testing bounded by a timeout, and random-access reads per entry
// on top of github.com/javi11/rardecode/v2.
package archive
