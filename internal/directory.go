package internal

import (
	"sort"
)

const (
	// FallbackName is the display name of a peer that isn't in the directory.
	FallbackName = "anonymous"
)

// DirectoryEntry maps a peer ID to its display name.
type DirectoryEntry struct {
	PeerID string
	Name   string
}

// Directory maps peer IDs to display names.
//
// Note this is not thread safe.
type Directory struct {
	names map[string]string
}

func NewDirectory() *Directory {
	return &Directory{
		names: make(map[string]string),
	}
}

// Resolve returns the display name of the peer with the given ID, or
// FallbackName if the peer is unknown.
func (d *Directory) Resolve(peerID string) string {
	if name, ok := d.names[peerID]; ok {
		return name
	}
	return FallbackName
}

// Lookup returns the display name of the peer with the given ID.
func (d *Directory) Lookup(peerID string) (string, bool) {
	name, ok := d.names[peerID]
	return name, ok
}

// Upsert adds the peer or replaces its existing name.
func (d *Directory) Upsert(peerID string, name string) {
	d.names[peerID] = name
}

// Remove removes the peer and returns its name, if it was known.
func (d *Directory) Remove(peerID string) (string, bool) {
	name, ok := d.names[peerID]
	if !ok {
		return "", false
	}
	delete(d.names, peerID)
	return name, true
}

func (d *Directory) Len() int {
	return len(d.names)
}

// Entries returns all entries sorted by peer ID.
func (d *Directory) Entries() []DirectoryEntry {
	entries := make([]DirectoryEntry, 0, len(d.names))
	for peerID, name := range d.names {
		entries = append(entries, DirectoryEntry{
			PeerID: peerID,
			Name:   name,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PeerID < entries[j].PeerID
	})
	return entries
}
