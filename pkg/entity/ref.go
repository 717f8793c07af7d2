package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SingletonName is the textual form of the singleton reference.
const SingletonName = "legalRep"

var (
	// ErrOutOfRange is returned when a reference does not address an existing
	// entity.
	ErrOutOfRange = errors.New("entity: reference out of range")
	// ErrMalformedRef is returned by ParseRef for unparseable input.
	ErrMalformedRef = errors.New("entity: malformed reference")
	// ErrNoEditTarget is returned when an edit is committed with nothing
	// selected.
	ErrNoEditTarget = errors.New("entity: no edit target")
)

type refKind uint8

const (
	refNone refKind = iota
	refSingleton
	refIndex
)

// Ref addresses either the singleton entity or a position in a sequence. The
// zero Ref addresses nothing.
type Ref struct {
	kind  refKind
	index int
}

// Singleton returns the reference to the singleton entity.
func Singleton() Ref { return Ref{kind: refSingleton} }

// At returns the reference to position i of a sequence.
func At(i int) Ref { return Ref{kind: refIndex, index: i} }

// ParseRef parses "legalRep" or a non-negative integer.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == SingletonName {
		return Singleton(), nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return Ref{}, fmt.Errorf("%w: %q", ErrMalformedRef, s)
	}
	return At(i), nil
}

// IsZero reports whether r addresses nothing.
func (r Ref) IsZero() bool { return r.kind == refNone }

// IsSingleton reports whether r addresses the singleton entity.
func (r Ref) IsSingleton() bool { return r.kind == refSingleton }

// Index returns the sequence position addressed by r.
func (r Ref) Index() (int, bool) {
	if r.kind != refIndex {
		return 0, false
	}
	return r.index, true
}

func (r Ref) String() string {
	switch r.kind {
	case refSingleton:
		return SingletonName
	case refIndex:
		return strconv.Itoa(r.index)
	default:
		return ""
	}
}
