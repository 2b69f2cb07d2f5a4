// Package release assembles the relpack release command.
package release
