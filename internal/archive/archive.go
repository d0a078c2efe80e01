// Package archive models the script archive: an ordered list of slots,
// each holding an id, a display name, and a compressed script or nothing.
//
// The on-disk form is the host editor's Marshal stream (see marshal.go).
// Slot order is identity: the editor loads scripts by position, so Decode
// and Encode never reorder, drop, or add slots.
//
// The stream has no empty-slot sentinel. Decode treats a slot with a blank
// name whose payload inflates to zero bytes as Empty, and Encode writes
// Empty as compressed zero-length content, so the archive bytes round-trip.
// A blank-named slot that is Present with zero-length content therefore
// cannot be represented: it always decodes as Empty.
package archive

import (
	"fmt"
	"strings"

	"github.com/roach88/scriptsync/internal/entry"
)

// Payload is either a present compressed script or the empty sentinel.
// The zero value is Empty.
type Payload struct {
	data    []byte
	present bool
}

// Present wraps a compressed script. A zero-length compressed slice is
// still present; it is not the empty sentinel.
func Present(compressed []byte) Payload {
	if compressed == nil {
		compressed = []byte{}
	}
	return Payload{data: compressed, present: true}
}

// Empty returns the sentinel for a slot that carries no script.
func Empty() Payload {
	return Payload{}
}

// IsEmpty reports whether p is the empty sentinel.
func (p Payload) IsEmpty() bool {
	return !p.present
}

// Bytes returns the compressed script, or nil for the empty sentinel.
func (p Payload) Bytes() []byte {
	return p.data
}

// Slot is one positional entry of the archive.
type Slot struct {
	Index   int
	ID      int64
	Name    string
	Payload Payload
}

// Archive is the ordered sequence of slots.
type Archive struct {
	Slots []Slot
}

// Len returns the number of slots.
func (a *Archive) Len() int {
	return len(a.Slots)
}

// Append adds a slot at the next index.
func (a *Archive) Append(id int64, name string, payload Payload) {
	a.Slots = append(a.Slots, Slot{Index: len(a.Slots), ID: id, Name: name, Payload: payload})
}

// Decode parses an archive. A slot with a blank name whose payload inflates
// to zero bytes is the editor's separator entry and decodes as Empty.
// Payloads that fail to inflate stay Present; the failure surfaces when the
// script is exported.
func Decode(data []byte) (*Archive, error) {
	entries, err := unmarshalScripts(data)
	if err != nil {
		return nil, err
	}

	a := &Archive{Slots: make([]Slot, 0, len(entries))}
	for _, e := range entries {
		payload := Present(e.payload)
		if isSeparator(e.name, e.payload) {
			payload = Empty()
		}
		a.Append(e.id, e.name, payload)
	}
	return a, nil
}

// Encode serializes an archive. Empty slots are written as the compressed
// form of zero-length content, which Decode maps back to Empty.
func Encode(a *Archive) ([]byte, error) {
	entries := make([]scriptEntry, len(a.Slots))
	for i, slot := range a.Slots {
		if slot.Index != i {
			return nil, fmt.Errorf("encode archive: slot %d has index %d", i, slot.Index)
		}
		payload := slot.Payload.Bytes()
		if slot.Payload.IsEmpty() {
			empty, err := entry.Compress(nil)
			if err != nil {
				return nil, fmt.Errorf("encode archive: slot %d: %w", i, err)
			}
			payload = empty
		}
		entries[i] = scriptEntry{id: slot.ID, name: slot.Name, payload: payload}
	}
	return marshalScripts(entries)
}

func isSeparator(name string, payload []byte) bool {
	if strings.TrimSpace(name) != "" {
		return false
	}
	content, err := entry.Decompress(payload)
	return err == nil && len(content) == 0
}
