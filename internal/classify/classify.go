// Package classify holds the pure address classifiers: syntax, normalization
// and membership in the free/disposable/role lists.
package classify

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Normalize trims whitespace and lowercases. Idempotent.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func IsValidSyntax(email string) bool {
	return emailRegex.MatchString(email)
}

// Split cuts at the first '@'. Callers are expected to have validated syntax;
// with no '@' present the domain comes back empty.
func Split(email string) (local, domain string) {
	local, domain, _ = strings.Cut(email, "@")
	return local, domain
}

// Sets answers membership queries against the startup-loaded lists.
// All lookups are pure and safe for concurrent use.
type Sets struct {
	free       map[string]struct{}
	disposable map[string]struct{}
	role       map[string]struct{}
}

// NewSets builds Sets from in-memory lists. Entries are lowercased.
func NewSets(free, disposable, role []string) *Sets {
	return &Sets{
		free:       toSet(free),
		disposable: toSet(disposable),
		role:       toSet(role),
	}
}

// LoadSets reads free_domains.txt, disposable_domains.txt and
// role_prefixes.txt from dir.
func LoadSets(dir string) (*Sets, error) {
	free, err := readList(filepath.Join(dir, "free_domains.txt"))
	if err != nil {
		return nil, err
	}
	disposable, err := readList(filepath.Join(dir, "disposable_domains.txt"))
	if err != nil {
		return nil, err
	}
	role, err := readList(filepath.Join(dir, "role_prefixes.txt"))
	if err != nil {
		return nil, err
	}
	return NewSets(free, disposable, role), nil
}

func (s *Sets) IsFree(domain string) bool {
	_, ok := s.free[strings.ToLower(domain)]
	return ok
}

func (s *Sets) IsDisposable(domain string) bool {
	_, ok := s.disposable[strings.ToLower(domain)]
	return ok
}

// IsRole checks whether the local part is a generic function mailbox.
// A trailing +tag is stripped first, so "sales+q3" matches "sales".
func (s *Sets) IsRole(local string) bool {
	pure, _, _ := strings.Cut(local, "+")
	_, ok := s.role[strings.ToLower(pure)]
	return ok
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}

func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list %s: %w", path, err)
	}
	defer f.Close()

	var items []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	return items, nil
}
