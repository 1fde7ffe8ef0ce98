package naming

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"pdfchat/internal/domain"
	"pdfchat/internal/port"
)

const (
	prefixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	prefixLen      = 6
	seedLen        = 8
	defaultSeed    = "doc"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Allocator hands out index identifiers that are unique within the object store.
type Allocator struct {
	store    port.ObjectStore
	prefix   string
	attempts int
	random   func() string
}

// Allocation is the outcome of Allocate or Claim.
type Allocation struct {
	ID        string
	Generated bool
	// Warning is set (to an ErrIdentifierTaken wrap) when the preferred name was unavailable.
	Warning error
}

func NewAllocator(store port.ObjectStore, indexPrefix string, attempts int) *Allocator {
	if attempts <= 0 {
		attempts = 32
	}
	return &Allocator{
		store:    store,
		prefix:   indexPrefix,
		attempts: attempts,
		random:   randomPrefix,
	}
}

// Validate reports whether name only uses letters, digits, underscores and hyphens.
func Validate(name string) bool {
	return validName.MatchString(name)
}

// Key returns the object key of file inside the index directory of id.
func (a *Allocator) Key(id, file string) string {
	return path.Join(a.prefix, id, file)
}

// Dir returns the object key prefix of the index directory of id.
func (a *Allocator) Dir(id string) string {
	return path.Join(a.prefix, id) + "/"
}

// Exists reports whether id already names a stored or reserved index.
func (a *Allocator) Exists(ctx context.Context, id string) (bool, error) {
	for _, file := range []string{domain.IndexFile, domain.ReservationFile} {
		ok, err := a.store.Exists(ctx, a.Key(id, file))
		if err != nil {
			return false, fmt.Errorf("failed to check %s: %w", id, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Allocate picks preferred when it is free, otherwise a generated name derived from seed.
// An invalid preferred name is an error; a taken one is reported as a warning.
func (a *Allocator) Allocate(ctx context.Context, preferred, seed string) (Allocation, error) {
	var alloc Allocation

	if preferred != "" {
		if !Validate(preferred) {
			return alloc, fmt.Errorf("%q: %w", preferred, domain.ErrInvalidIdentifier)
		}
		taken, err := a.Exists(ctx, preferred)
		if err != nil {
			return alloc, err
		}
		if !taken {
			alloc.ID = preferred
			return alloc, nil
		}
		alloc.Warning = fmt.Errorf("%q: %w", preferred, domain.ErrIdentifierTaken)
	}

	id, err := a.generate(ctx, seed)
	if err != nil {
		return alloc, err
	}
	alloc.ID = id
	alloc.Generated = true
	return alloc, nil
}

// Reserve atomically claims id. It returns false when another caller holds it.
func (a *Allocator) Reserve(ctx context.Context, id string) (bool, error) {
	stamp := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	ok, err := a.store.PutIfAbsent(ctx, a.Key(id, domain.ReservationFile), stamp)
	if err != nil {
		return false, fmt.Errorf("failed to reserve %s: %w", id, err)
	}
	return ok, nil
}

// Claim allocates and reserves an identifier, retrying when a concurrent
// ingest wins the reservation between the existence check and the write.
func (a *Allocator) Claim(ctx context.Context, preferred, seed string) (Allocation, error) {
	var warning error
	for i := 0; i < a.attempts; i++ {
		alloc, err := a.Allocate(ctx, preferred, seed)
		if err != nil {
			return alloc, err
		}
		if alloc.Warning == nil {
			alloc.Warning = warning
		}

		ok, err := a.Reserve(ctx, alloc.ID)
		if err != nil {
			return alloc, err
		}
		if ok {
			return alloc, nil
		}

		if !alloc.Generated {
			// Lost the race for the preferred name; generate from now on.
			warning = fmt.Errorf("%q: %w", preferred, domain.ErrIdentifierTaken)
			preferred = ""
		}
	}
	return Allocation{}, errors.New("failed to claim an identifier: too many collisions")
}

func (a *Allocator) generate(ctx context.Context, seed string) (string, error) {
	stem := Seed(seed)
	for i := 0; i < a.attempts; i++ {
		candidate := a.random() + "_" + stem
		taken, err := a.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free identifier after %d attempts", a.attempts)
}

// Seed reduces a file name to the short stem used in generated identifiers.
func Seed(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var sb strings.Builder
	n := 0
	for _, r := range base {
		if n == seedLen {
			break
		}
		if unicode.IsSpace(r) || r > unicode.MaxASCII || !Validate(string(r)) {
			continue
		}
		sb.WriteRune(r)
		n++
	}

	if sb.Len() == 0 {
		return defaultSeed
	}
	return sb.String()
}

func randomPrefix() string {
	b := make([]byte, prefixLen)
	for i := range b {
		b[i] = prefixAlphabet[rand.Intn(len(prefixAlphabet))]
	}
	return string(b)
}
